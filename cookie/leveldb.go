package cookie

import (
	"fmt"
	"oars-console/codec"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	log "github.com/sirupsen/logrus"
)

const keyPrefix = "cookie/"

// record is the stored form of a persistent cookie.
type record struct {
	Value   string `cbor:"value"`
	Expires int64  `cbor:"expires"` // unix nanoseconds
}

// LevelDBJar persists cookies with an expiry across processes. Session
// cookies live in memory and end with the jar.
type LevelDBJar struct {
	mu      sync.Mutex
	db      *leveldb.DB
	codec   codec.Codec
	session map[string]string
	now     func() time.Time
}

// OpenLevelDBJar opens (or creates) the jar at path, recovering a corrupted
// database when possible.
func OpenLevelDBJar(path string) (*LevelDBJar, error) {
	opts := &opt.Options{
		Compression: opt.NoCompression,
	}

	db, err := leveldb.OpenFile(path, opts)
	if errors.IsCorrupted(err) {
		log.Warnf("cookie jar at %s is corrupted, recovering", path)
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open cookie jar: %w", err)
	}

	return &LevelDBJar{
		db:      db,
		codec:   codec.GetCodec(codec.CodecTypeCBOR),
		session: make(map[string]string),
		now:     time.Now,
	}, nil
}

func keyFromName(name string) []byte {
	return []byte(keyPrefix + name)
}

func (j *LevelDBJar) Get(name string) (string, bool) {
	return Lookup(j.String(), name)
}

func (j *LevelDBJar) Set(name, value string, expiryDays int) error {
	if err := checkName(name); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	expires := expiry(j.now(), expiryDays)
	if expires.IsZero() {
		j.session[name] = value
		return j.db.Delete(keyFromName(name), nil)
	}

	delete(j.session, name)
	return j.put(name, record{Value: value, Expires: expires.UnixNano()})
}

func (j *LevelDBJar) Delete(name string) error {
	value, ok := j.Get(name)
	if !ok {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.session, name)
	return j.put(name, record{Value: value, Expires: j.now().Add(-time.Millisecond).UnixNano()})
}

func (j *LevelDBJar) put(name string, r record) error {
	data, err := j.codec.Encode(&r)
	if err != nil {
		return err
	}
	return j.db.Put(keyFromName(name), data, nil)
}

// String returns the live cookies in raw form. Expired records are removed
// from the database as they are found.
func (j *LevelDBJar) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	values := make(map[string]string)
	batch := new(leveldb.Batch)

	iter := j.db.NewIterator(util.BytesPrefix([]byte(keyPrefix)), nil)
	for iter.Next() {
		name := string(iter.Key()[len(keyPrefix):])
		var r record
		if err := j.codec.Decode(iter.Value(), &r); err != nil {
			log.WithField("cookie", name).Warnf("dropping unreadable cookie: %v", err)
			batch.Delete(append([]byte(nil), iter.Key()...))
			continue
		}
		if expired(time.Unix(0, r.Expires), now) {
			batch.Delete(append([]byte(nil), iter.Key()...))
			continue
		}
		values[name] = r.Value
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		log.Errorf("cookie jar iteration failed: %v", err)
	}

	if batch.Len() > 0 {
		if err := j.db.Write(batch, nil); err != nil {
			log.Errorf("cookie jar cleanup failed: %v", err)
		}
	}

	for name, value := range j.session {
		values[name] = value
	}
	return Format(values)
}

func (j *LevelDBJar) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}

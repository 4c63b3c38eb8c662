package cookie

import (
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time // zero for session cookies
}

// MemoryJar keeps cookies for the lifetime of the process.
type MemoryJar struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryJar() *MemoryJar {
	return &MemoryJar{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (j *MemoryJar) Get(name string) (string, bool) {
	return Lookup(j.String(), name)
}

func (j *MemoryJar) Set(name, value string, expiryDays int) error {
	if err := checkName(name); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[name] = entry{value: value, expires: expiry(j.now(), expiryDays)}
	return nil
}

func (j *MemoryJar) Delete(name string) error {
	value, ok := j.Get(name)
	if !ok {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[name] = entry{value: value, expires: j.now().Add(-time.Millisecond)}
	return nil
}

// String returns the live cookies in raw form. Expired entries are dropped.
func (j *MemoryJar) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	values := make(map[string]string, len(j.entries))
	for name, e := range j.entries {
		if expired(e.expires, now) {
			delete(j.entries, name)
			continue
		}
		values[name] = e.value
	}
	return Format(values)
}

// Package cookie stores the auth token the same way the console keeps it in
// the browser: a named cookie with an optional absolute expiry.
//
// Reads go through the raw "name=value; name2=value2" form so a jar and a
// Cookie header string are interchangeable.
package cookie

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

// DefaultTokenName is the cookie the login flow writes the auth token to.
const DefaultTokenName = "API_TOKEN"

// Session as expiryDays writes a session cookie (no expiry).
const Session = 0

// ErrInvalidName is returned by Set for names that cannot appear in a raw
// cookie string.
var ErrInvalidName = errors.New("invalid cookie name")

// ValidName reports whether name can be stored and looked up again:
// non-empty, no '=', ';' or whitespace.
func ValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "=; \t\r\n")
}

func checkName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Jar is the cookie store used for the auth token.
type Jar interface {
	// Get returns the current value; ok is false when the cookie is absent
	// or expired.
	Get(name string) (value string, ok bool)
	// Set writes a cookie expiring expiryDays from now. expiryDays <= 0
	// writes a session cookie.
	Set(name, value string, expiryDays int) error
	// Delete overwrites the cookie with an already expired timestamp.
	// Deleting an absent cookie is a no-op.
	Delete(name string) error
}

// Lookup finds name in a raw cookie string. Invalid names never match.
func Lookup(raw, name string) (string, bool) {
	if !ValidName(name) {
		return "", false
	}
	re, err := regexp.Compile("(^| )" + regexp.QuoteMeta(name) + "=([^;]*)(;|$)")
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return unescape(m[2]), true
}

// Format renders name/value pairs as a raw cookie string, names sorted.
func Format(values map[string]string) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+escape(values[name]))
	}
	return strings.Join(parts, "; ")
}

// TokenSource reads the named cookie on every call. Nothing is cached.
func TokenSource(jar Jar, name string) func() string {
	return func() string {
		value, _ := jar.Get(name)
		return value
	}
}

// expiry returns the absolute expiry for expiryDays, zero for a session
// cookie.
func expiry(now time.Time, expiryDays int) time.Time {
	if expiryDays <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, expiryDays)
}

func expired(expires, now time.Time) bool {
	return !expires.IsZero() && !now.Before(expires)
}

func escape(value string) string {
	return url.QueryEscape(value)
}

func unescape(value string) string {
	v, err := url.QueryUnescape(value)
	if err != nil {
		return value
	}
	return v
}

package httputil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ErrExpired is returned by [Cache.Get] when an entry exists but is older
// than the cache TTL. The entry stays on disk so it can be revalidated with
// its ETag; see [Cache.Lookup].
var ErrExpired = errors.New("cache entry expired")

// Entry is one cached feed response.
type Entry struct {
	Body   json.RawMessage `json:"body"`
	ETag   string          `json:"etag,omitempty"`
	Stored time.Time       `json:"stored"`
}

// Fresh reports whether e was stored less than ttl before now. A zero ttl
// never expires.
func (e *Entry) Fresh(ttl time.Duration, now time.Time) bool {
	return ttl <= 0 || now.Sub(e.Stored) <= ttl
}

// Decode unmarshals the cached body into v.
func (e *Entry) Decode(v any) error { return json.Unmarshal(e.Body, v) }

// Cache keeps feed responses on disk, one JSON envelope per key, so that a
// stale entry can be revalidated with a conditional request instead of
// downloaded again.
//
// Keys are hashed with SHA-256 and sharded by the first byte of the hash.
// Writes go through a temporary file and a rename, so concurrent readers in
// this or another process never see a torn entry. Freshness is measured from
// [Entry.Stored], not from the file's modification time.
type Cache struct {
	dir    string
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// NewCache creates a Cache rooted at dir. An empty dir means
// ~/.cache/packforge/http. A zero ttl keeps entries fresh forever.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".cache", "packforge", "http")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// TTL returns how long entries stay fresh.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Lookup returns the entry stored under key whether or not it is fresh, or
// nil when there is none. An entry that no longer decodes is treated as
// missing and removed.
func (c *Cache) Lookup(key string) (*Entry, error) {
	path := c.keyPath(key)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil || e.Body == nil {
		os.Remove(path)
		return nil, nil
	}
	return &e, nil
}

// Get decodes a fresh entry into v.
//
//   - (true, nil): fresh hit, v is filled.
//   - (false, nil): no entry.
//   - (false, ErrExpired): an entry exists but is stale.
func (c *Cache) Get(key string, v any) (bool, error) {
	e, err := c.Lookup(key)
	if err != nil || e == nil {
		return false, err
	}
	if !e.Fresh(c.ttl, c.now()) {
		return false, ErrExpired
	}
	if err := e.Decode(v); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v under key without a validator.
func (c *Cache) Set(key string, v any) error { return c.Store(key, v, "") }

// Store stores v under key together with the ETag the server sent for it.
func (c *Cache) Store(key string, v any, etag string) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(key, &Entry{Body: body, ETag: etag, Stored: c.now()})
}

// Touch marks the entry under key as fresh again, typically after the
// server answered 304 Not Modified. Touching a missing key is a no-op.
func (c *Cache) Touch(key string) error {
	e, err := c.Lookup(key)
	if err != nil || e == nil {
		return err
	}
	e.Stored = c.now()
	return c.write(key, e)
}

// Namespace returns a view of the cache whose keys are prefixed with
// prefix. Views share the directory and TTL, and can be chained.
func (c *Cache) Namespace(prefix string) *Cache {
	ns := *c
	ns.prefix = c.prefix + prefix
	return &ns
}

func (c *Cache) write(key string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	path := c.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c *Cache) keyPath(key string) string {
	h := sha256.Sum256([]byte(c.prefix + key))
	name := hex.EncodeToString(h[:])
	return filepath.Join(c.dir, name[:2], name+".json")
}

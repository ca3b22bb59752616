// Package diskcache persists per-file diagnostics between CLI runs, keyed by
// a digest of the file content and everything else that influences the
// result.
package diskcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"fishls/internal/diag"
)

// Bump when the Payload layout changes.
const schemaVersion uint16 = 1

// Digest identifies one cache entry.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// Key hashes content together with salt values such as the tool version and
// a configuration fingerprint. Each salt is length-prefixed so that
// ("ab","c") and ("a","bc") differ.
func Key(content []byte, salt ...string) Digest {
	h := sha256.New()
	for _, s := range salt {
		fmt.Fprintf(h, "%d:%s;", len(s), s)
	}
	h.Write(content)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Payload is the stored result for one file.
type Payload struct {
	Schema      uint16
	Path        string
	Created     time.Time
	Diagnostics []diag.Diagnostic
}

// Cache stores zstd-compressed msgpack payloads below a directory. A nil
// *Cache is valid and never hits. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns the cache at $XDG_CACHE_HOME/<app> (or ~/.cache/<app>).
func Open(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app))
}

// OpenDir returns a cache rooted at dir, creating it if needed.
func OpenDir(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskcache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Digest) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "diags", hexKey[:2], hexKey+".mp.zst")
}

// Put writes diags for key. The entry is replaced atomically.
func (c *Cache) Put(key Digest, path string, diags []diag.Diagnostic) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return err
	}
	payload := Payload{
		Schema:      schemaVersion,
		Path:        path,
		Created:     time.Now().UTC(),
		Diagnostics: diags,
	}
	if err := msgpack.NewEncoder(zw).Encode(&payload); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads the entry for key. Entries from another schema and unreadable
// entries count as misses; the latter are removed.
func (c *Cache) Get(key Digest) ([]diag.Diagnostic, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(key)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, false, err
	}
	defer zr.Close()

	var payload Payload
	if err := msgpack.NewDecoder(zr).Decode(&payload); err != nil {
		_ = os.Remove(p)
		return nil, false, nil
	}
	if payload.Schema != schemaVersion {
		return nil, false, nil
	}
	if payload.Diagnostics == nil {
		payload.Diagnostics = []diag.Diagnostic{}
	}
	return payload.Diagnostics, true, nil
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(c.dir, 0o755)
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

package fetcher

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-pkgz/lgr"
)

// fileCache is a filesystem-backed URL→{content, etag} map. Entries are keyed
// by the sha256 of the URL, written on every 2xx and read back on 304 or
// fetch failure. No expiry, last write wins. A nil-dir cache degrades to
// a no-op so the fetcher works without local storage.
type fileCache struct {
	dir string
	mu  sync.Mutex
}

func newFileCache(dir string) *fileCache {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			lgr.Printf("[WARN] can't create cache dir %s, caching disabled: %v", dir, err)
			dir = ""
		}
	}
	return &fileCache{dir: dir}
}

func cacheKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *fileCache) contentPath(url string) string {
	return filepath.Join(c.dir, cacheKey(url)+".body")
}

func (c *fileCache) etagPath(url string) string {
	return filepath.Join(c.dir, cacheKey(url)+".etag")
}

// content returns the cached body for a URL
func (c *fileCache) content(url string) ([]byte, bool) {
	if c.dir == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.contentPath(url))
	if err != nil {
		return nil, false
	}
	return data, true
}

// etag returns the stored ETag for a URL
func (c *fileCache) etag(url string) (string, bool) {
	if c.dir == "" {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.etagPath(url))
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// store writes content and etag for a URL. Failures are logged and ignored,
// the cache is best effort.
func (c *fileCache) store(url string, data []byte, etag string) {
	if c.dir == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.WriteFile(c.contentPath(url), data, 0o600); err != nil {
		lgr.Printf("[WARN] can't write cache entry for %s: %v", url, err)
		return
	}
	if etag == "" {
		_ = os.Remove(c.etagPath(url))
		return
	}
	if err := os.WriteFile(c.etagPath(url), []byte(etag), 0o600); err != nil {
		lgr.Printf("[WARN] can't write etag for %s: %v", url, err)
	}
}

package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/singleflight"
)

// FetchCache performs ETag-aware HTTP GETs backed by a filesystem content
// cache. A stored ETag is sent as a conditional header; 304 responses are
// translated into cache-sourced successes, and any other failure falls back
// to cached content when present. Concurrent fetches of the same URL are
// collapsed via singleflight.
type FetchCache struct {
	client     *http.Client
	cache      *fileCache
	snippetAPI string
	userAgent  string
	sf         singleflight.Group
}

// Result of a single fetch
type Result struct {
	Data      []byte
	Headers   http.Header
	Status    int
	FromCache bool
}

// Opts configures a FetchCache
type Opts struct {
	CacheDir   string
	SnippetAPI string
	Timeout    time.Duration
	UserAgent  string
}

// New creates a fetch cache. A zero timeout defaults to 9s so an unreachable
// remote can never block initialization.
func New(opts Opts) *FetchCache {
	if opts.Timeout == 0 {
		opts.Timeout = 9 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Confscope/1.0"
	}
	return &FetchCache{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cache:      newFileCache(opts.CacheDir),
		snippetAPI: opts.SnippetAPI,
		userAgent:  opts.UserAgent,
	}
}

// Get fetches a URL, consulting and refreshing the cache when useCache is set.
// Extra headers are applied on top of the defaults.
func (f *FetchCache) Get(ctx context.Context, url string, headers map[string]string, useCache bool) (*Result, error) {
	key := fmt.Sprintf("%s|cache=%t", url, useCache)
	v, err, _ := f.sf.Do(key, func() (any, error) {
		return f.get(ctx, url, headers, useCache)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (f *FetchCache) get(ctx context.Context, url string, headers map[string]string, useCache bool) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if useCache {
		if etag, ok := f.cache.etag(url); ok {
			req.Header.Set("If-None-Match", etag)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// network failure, serve stale cache if we have it
		if useCache {
			if data, ok := f.cache.content(url); ok {
				lgr.Printf("[WARN] fetch %s failed, using cached content: %v", url, err)
				return &Result{Data: data, Headers: http.Header{}, Status: http.StatusOK, FromCache: true}, nil
			}
		}
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode == http.StatusNotModified {
		data, ok := f.cache.content(url)
		if !ok {
			return nil, fmt.Errorf("got 304 for %s but cache is empty", url)
		}
		return &Result{Data: data, Headers: resp.Header, Status: http.StatusOK, FromCache: true}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if useCache {
			if data, ok := f.cache.content(url); ok {
				lgr.Printf("[WARN] fetch %s returned %d, using cached content", url, resp.StatusCode)
				return &Result{Data: data, Headers: resp.Header, Status: http.StatusOK, FromCache: true}, nil
			}
		}
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if useCache {
			if cached, ok := f.cache.content(url); ok {
				lgr.Printf("[WARN] read body of %s failed, using cached content: %v", url, err)
				return &Result{Data: cached, Headers: resp.Header, Status: http.StatusOK, FromCache: true}, nil
			}
		}
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}

	if useCache {
		f.cache.store(url, data, resp.Header.Get("ETag"))
	}

	return &Result{Data: data, Headers: resp.Header, Status: resp.StatusCode, FromCache: false}, nil
}

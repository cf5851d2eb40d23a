package poller

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/confscope/pkg/fetcher"
)

// persisted keys shared with the state assembler
const (
	keySnapshot    = "remote_config_snapshot"
	keyPending     = "remote_update_pending"
	keyLastChecked = "remote_last_checked"
)

// Fetcher retrieves raw remote content
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string, useCache bool) (*fetcher.Result, error)
}

// Store is the persisted key-value store holding the snapshot and flags
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Poller periodically re-fetches the raw remote document and byte-diffs it
// against the last persisted snapshot, flipping a pending flag without
// applying the update. It deliberately bypasses load and parse; a cheap
// textual comparison is enough to know an update is waiting.
type Poller struct {
	fetcher    Fetcher
	store      Store
	url        string
	snippetAPI string
	interval   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Opts configures a Poller
type Opts struct {
	URL        string
	SnippetAPI string // metadata endpoint for bare snippet ids
	Interval   time.Duration
}

// New creates a poller; zero interval defaults to 5 minutes, empty snippet
// API falls back to the fetcher's default host
func New(f Fetcher, store Store, opts Opts) *Poller {
	if opts.Interval == 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.SnippetAPI == "" {
		opts.SnippetAPI = fetcher.DefaultSnippetAPI
	}
	return &Poller{fetcher: f, store: store, url: opts.URL, snippetAPI: opts.SnippetAPI, interval: opts.Interval}
}

// Start runs an immediate check and then checks on the configured interval
// until the context is canceled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	if p.url == "" {
		lgr.Printf("[INFO] no remote source configured, poller not started")
		return
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return // already polling
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		// run immediately on start
		if _, err := p.CheckNow(ctx); err != nil {
			lgr.Printf("[WARN] initial remote check failed: %v", err)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := p.CheckNow(ctx); err != nil {
					lgr.Printf("[WARN] remote check failed: %v", err)
				}
			}
		}
	}()

	lgr.Printf("[INFO] poller started, interval %v", p.interval)
}

// Stop cancels the polling timer and waits for the loop to exit
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	lgr.Printf("[INFO] poller stopped")
}

// CheckNow fetches the raw remote text and compares it with the persisted
// snapshot. The first check seeds the snapshot and reports no update; later
// checks set or clear the pending flag. The last-checked timestamp is
// refreshed on every attempt that produced content.
func (p *Poller) CheckNow(ctx context.Context) (bool, error) {
	resolved := fetcher.ResolveRawURL(p.url)
	url := resolved.URL
	if resolved.SnippetID != "" {
		url = strings.TrimSuffix(p.snippetAPI, "/") + "/" + resolved.SnippetID
	}

	res, err := p.fetcher.Get(ctx, url, nil, false)
	if err != nil {
		return false, err
	}

	p.setString(ctx, keyLastChecked, time.Now().UTC().Format(time.RFC3339))

	prev, err := p.store.Get(ctx, keySnapshot)
	if err != nil {
		lgr.Printf("[WARN] can't read remote snapshot: %v", err)
		prev = ""
	}

	if prev == "" {
		// first ever check just seeds the snapshot
		p.setString(ctx, keySnapshot, string(res.Data))
		p.setString(ctx, keyPending, "false")
		return false, nil
	}

	changed := !bytes.Equal([]byte(prev), res.Data)
	if changed {
		p.setString(ctx, keyPending, "true")
		lgr.Printf("[INFO] remote configuration changed, update pending")
	} else {
		p.setString(ctx, keyPending, "false")
	}
	return changed, nil
}

// Reset clears the pending flag and the stored snapshot, used by a full
// refresh before reloading.
func (p *Poller) Reset(ctx context.Context) {
	if err := p.store.Delete(ctx, keySnapshot); err != nil {
		lgr.Printf("[WARN] can't clear remote snapshot: %v", err)
	}
	p.setString(ctx, keyPending, "false")
}

// Pending reports whether a remote update is waiting to be applied
func (p *Poller) Pending(ctx context.Context) bool {
	v, err := p.store.Get(ctx, keyPending)
	if err != nil {
		return false
	}
	return v == "true"
}

// LastChecked returns the time of the last completed check, zero if never
func (p *Poller) LastChecked(ctx context.Context) time.Time {
	v, err := p.store.Get(ctx, keyLastChecked)
	if err != nil || v == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func (p *Poller) setString(ctx context.Context, key, value string) {
	if err := p.store.Set(ctx, key, value); err != nil {
		lgr.Printf("[WARN] can't persist %s: %v", key, err)
	}
}

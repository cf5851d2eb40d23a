package loader

import (
	"context"
	_ "embed"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/confscope/pkg/domain"
	"github.com/umputun/confscope/pkg/fetcher"
)

//go:embed default-settings.json
var bundledDocument []byte

// Fetcher retrieves remote content with caching
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string, useCache bool) (*fetcher.Result, error)
	FetchSnippet(ctx context.Context, id, filename string) (*fetcher.Result, error)
}

// Enricher builds a typed definition from a raw entry
type Enricher interface {
	Enrich(key string, raw []byte) domain.SettingDefinition
}

// ValuesStore is the host's live layered configuration
type ValuesStore interface {
	Inspect(key string) (domain.ValueInspection, error)
	Update(key string, value any, scope string) error
}

// Capabilities answers availability of required capability ids
type Capabilities interface {
	IsAvailable(id string) bool
}

// Loader fetches the remote settings document, normalizes it into a flat
// definition list via the enricher, applies safe defaults to never-touched
// settings and notifies subscribers. Any remote failure degrades to the
// bundled document, never to an error.
type Loader struct {
	fetcher   Fetcher
	enricher  Enricher
	values    ValuesStore
	caps      Capabilities
	sourceURL string
	snippet   string // preferred filename inside a snippet payload
	sanitizer *bluemonday.Policy

	mu      sync.Mutex
	subs    map[int]chan domain.LoadResult
	nextSub int
}

// Opts configures a Loader
type Opts struct {
	Fetcher     Fetcher
	Enricher    Enricher
	Values      ValuesStore
	Caps        Capabilities
	SourceURL   string
	SnippetFile string
}

// New creates a loader
func New(opts Opts) *Loader {
	return &Loader{
		fetcher:   opts.Fetcher,
		enricher:  opts.Enricher,
		values:    opts.Values,
		caps:      opts.Caps,
		sourceURL: opts.SourceURL,
		snippet:   opts.SnippetFile,
		sanitizer: bluemonday.UGCPolicy(),
		subs:      map[int]chan domain.LoadResult{},
	}
}

// Load obtains the settings document, enriches it and applies defaults.
// A change notification fires on completion regardless of outcome.
func (l *Loader) Load(ctx context.Context) domain.LoadResult {
	result := domain.LoadResult{Source: domain.SourceLocal, Timestamp: time.Now()}

	data := l.fetchRemote(ctx)
	entries, err := normalize(data)
	if err != nil || data == nil {
		// fetchRemote already warned about unset or unreachable sources
		if err != nil && data != nil {
			lgr.Printf("[WARN] remote document rejected, falling back to bundled: %v", err)
		}
		if entries, err = normalize(bundledDocument); err != nil {
			lgr.Printf("[ERROR] bundled document is invalid: %v", err)
			entries = nil
		}
	} else {
		result.Source = domain.SourceRemote
	}

	defs := make([]domain.SettingDefinition, 0, len(entries))
	for _, entry := range entries {
		def := l.enricher.Enrich(entry.Key, entry.Raw)
		def.Description = l.sanitizer.Sanitize(def.Description)
		def.Info = l.sanitizer.Sanitize(def.Info)
		defs = append(defs, def)
	}

	l.applyDefaults(defs)

	result.Definitions = defs
	l.notify(result)
	lgr.Printf("[INFO] loaded %d definitions from %s source", len(defs), result.Source)
	return result
}

// fetchRemote returns the raw remote document or nil when the source is
// unset or unreachable
func (l *Loader) fetchRemote(ctx context.Context) []byte {
	if l.sourceURL == "" {
		return nil
	}

	resolved := fetcher.ResolveRawURL(l.sourceURL)
	if resolved.SnippetID != "" {
		res, err := l.fetcher.FetchSnippet(ctx, resolved.SnippetID, l.snippet)
		if err != nil {
			lgr.Printf("[WARN] snippet fetch failed: %v", err)
			return nil
		}
		return res.Data
	}

	res, err := l.fetcher.Get(ctx, resolved.URL, nil, true)
	if err != nil {
		lgr.Printf("[WARN] remote fetch failed: %v", err)
		return nil
	}
	return res.Data
}

// applyDefaults writes a value for each definition whose required
// capabilities are all present and whose key the user never set at any
// layer. Per-setting failures are isolated, the pass always completes.
func (l *Loader) applyDefaults(defs []domain.SettingDefinition) {
	for _, def := range defs {
		if !l.capabilitiesPresent(def) {
			continue
		}

		insp, err := l.values.Inspect(def.Key)
		if err != nil {
			lgr.Printf("[WARN] can't inspect %s, skipping default: %v", def.Key, err)
			continue
		}
		if insp.UserDefined() {
			continue
		}

		value, ok := defaultValue(def)
		if !ok {
			continue
		}
		if err := l.values.Update(def.Key, value, "global"); err != nil {
			lgr.Printf("[WARN] can't apply default for %s: %v", def.Key, err)
		}
	}
}

func (l *Loader) capabilitiesPresent(def domain.SettingDefinition) bool {
	for _, id := range def.Requires {
		if !l.caps.IsAvailable(id) {
			return false
		}
	}
	return true
}

// defaultValue picks the value written to a never-touched setting: explicit
// default, else true for booleans, else numeric min (or 1), else the first
// enumerated option. Definitions with no clear default are left alone.
func defaultValue(def domain.SettingDefinition) (any, bool) {
	if def.Default != nil {
		return def.Default, true
	}
	switch {
	case def.Type == domain.TypeBoolean:
		return true, true
	case def.Type == domain.TypeNumber && def.Min != nil:
		return *def.Min, true
	case def.Type == domain.TypeNumber:
		return 1, true
	case len(def.Options) > 0:
		return def.Options[0].Value, true
	}
	return nil, false
}

// Subscribe registers a change-notification channel. The returned cancel
// func must be called to release the subscription.
func (l *Loader) Subscribe() (<-chan domain.LoadResult, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSub
	l.nextSub++
	ch := make(chan domain.LoadResult, 1)
	l.subs[id] = ch

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

// notify fans the result out without blocking on slow subscribers
func (l *Loader) notify(result domain.LoadResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subs {
		select {
		case ch <- result:
		default:
		}
	}
}

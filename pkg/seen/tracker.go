package seen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
)

// stateKey is where the versioned document lives in the persisted store
const stateKey = "seen_settings_state"

// stateVersion guards the persisted document shape, a mismatch is treated as
// absent state and triggers first-run behavior
const stateVersion = 1

// Store is the process-wide persisted key-value store
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// State is the persisted seen-settings document
type State struct {
	Version        int                  `json:"version"`
	SeenSettings   map[string]time.Time `json:"seenSettings"`
	LastConfigHash string               `json:"lastConfigHash"`
	LastUpdated    time.Time            `json:"lastUpdated"`
	FirstRun       bool                 `json:"-"`
}

// Tracker persists which setting keys the user has already been shown and
// classifies definitions as new or seen. A hash of the sorted current key
// set short-circuits re-evaluation when nothing changed. Persistence
// failures never propagate; they degrade to "no prior state", which means
// nothing new, never everything new.
type Tracker struct {
	store Store

	mu    sync.Mutex
	state State
}

// NewTracker creates a tracker over a persisted store
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, state: emptyState()}
}

func emptyState() State {
	return State{Version: stateVersion, SeenSettings: map[string]time.Time{}, FirstRun: true}
}

// Initialize loads persisted state and enforces the first-run rule: with no
// prior state, every currently loaded key is marked seen immediately, so a
// first-time user never sees everything flagged new.
func (t *Tracker) Initialize(ctx context.Context, keys []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = t.load(ctx)
	if !t.state.FirstRun {
		return
	}

	now := time.Now()
	for _, k := range keys {
		t.state.SeenSettings[k] = now
	}
	t.state.LastConfigHash = hashKeys(keys)
	t.persist(ctx)
	lgr.Printf("[INFO] first run, marked %d settings as seen", len(keys))
}

// DetectNew returns the keys absent from the seen map. An unchanged key-set
// hash short-circuits to an empty result; otherwise the stored hash is
// updated.
func (t *Tracker) DetectNew(ctx context.Context, keys []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	hash := hashKeys(keys)
	if hash == t.state.LastConfigHash {
		return nil
	}

	var fresh []string
	for _, k := range keys {
		if _, ok := t.state.SeenSettings[k]; !ok {
			fresh = append(fresh, k)
		}
	}

	t.state.LastConfigHash = hash
	t.persist(ctx)
	return fresh
}

// MarkSeen records keys as seen with the current timestamp
func (t *Tracker) MarkSeen(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for _, k := range keys {
		t.state.SeenSettings[k] = now
	}
	t.persist(ctx)
}

// MarkAllSeen records every given key as seen
func (t *Tracker) MarkAllSeen(ctx context.Context, keys []string) {
	t.MarkSeen(ctx, keys)
}

// IsNew reports whether a key has never been shown to the user
func (t *Tracker) IsNew(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, seen := t.state.SeenSettings[key]
	return !seen
}

// NewCount returns how many of the given keys are new
func (t *Tracker) NewCount(keys []string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, k := range keys {
		if _, seen := t.state.SeenSettings[k]; !seen {
			count++
		}
	}
	return count
}

// Clear drops all persisted seen state
func (t *Tracker) Clear(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = emptyState()
	if err := t.store.Delete(ctx, stateKey); err != nil {
		lgr.Printf("[WARN] can't clear seen state: %v", err)
	}
}

// load reads the persisted document. Any read, parse or version problem is
// treated as absent state.
func (t *Tracker) load(ctx context.Context) State {
	raw, err := t.store.Get(ctx, stateKey)
	if err != nil {
		lgr.Printf("[WARN] can't read seen state, starting fresh: %v", err)
		return emptyState()
	}
	if raw == "" {
		return emptyState()
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		lgr.Printf("[WARN] corrupt seen state, starting fresh: %v", err)
		return emptyState()
	}
	if st.Version != stateVersion || st.SeenSettings == nil {
		lgr.Printf("[WARN] seen state version %d not usable, starting fresh", st.Version)
		return emptyState()
	}
	st.FirstRun = false
	return st
}

// persist writes the document back, failures are logged and swallowed
func (t *Tracker) persist(ctx context.Context) {
	t.state.FirstRun = false
	t.state.LastUpdated = time.Now()

	data, err := json.Marshal(t.state)
	if err != nil {
		lgr.Printf("[WARN] can't marshal seen state: %v", err)
		return
	}
	if err := t.store.Set(ctx, stateKey, string(data)); err != nil {
		lgr.Printf("[WARN] can't persist seen state: %v", err)
	}
}

// hashKeys digests the sorted key set. The joined string itself is the
// fallback identity when the digest can't be computed over empty input.
func hashKeys(keys []string) string {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	joined := strings.Join(sorted, "\n")
	if joined == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

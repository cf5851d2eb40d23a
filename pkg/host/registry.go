package host

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/confscope/pkg/enrich"
)

// Registry holds the host's installed capabilities. Each capability may
// declare a properties map contributing setting schemas. Registration order
// is preserved because schema lookups take the first match.
type Registry struct {
	mu   sync.RWMutex
	caps []enrich.Capability
	byID map[string]int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byID: map[string]int{}}
}

// Register adds or replaces a capability
func (r *Registry) Register(c enrich.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.byID[c.ID]; ok {
		r.caps[i] = c
		return
	}
	r.byID[c.ID] = len(r.caps)
	r.caps = append(r.caps, c)
}

// Capabilities returns registered capabilities in registration order
func (r *Registry) Capabilities() []enrich.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]enrich.Capability, len(r.caps))
	copy(out, r.caps)
	return out
}

// IsAvailable reports whether a capability is installed
func (r *Registry) IsAvailable(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byID[id]
	return ok
}

// capabilityManifest is the on-disk shape of one capability declaration
type capabilityManifest struct {
	ID         string                       `json:"id"`
	Properties map[string]enrich.SchemaNode `json:"properties"`
}

// LoadDir registers every capability manifest (*.json) found in a directory.
// A missing directory is fine, a broken manifest is skipped with a warning.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read capabilities dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path) //nolint:gosec // path is under the configured dir
		if err != nil {
			lgr.Printf("[WARN] can't read capability manifest %s: %v", path, err)
			continue
		}
		var m capabilityManifest
		if err := json.Unmarshal(data, &m); err != nil || m.ID == "" {
			lgr.Printf("[WARN] invalid capability manifest %s: %v", path, err)
			continue
		}
		r.Register(enrich.Capability{ID: m.ID, Properties: m.Properties})
	}
	return nil
}

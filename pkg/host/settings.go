package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/umputun/confscope/pkg/domain"
)

// layer file names inside the settings directory, in precedence order from
// least to most specific
const (
	fileDefaults        = "defaults.json"
	fileGlobal          = "global.json"
	fileWorkspace       = "workspace.json"
	fileWorkspaceFolder = "workspace-folder.json"
)

// SettingsFile is the host's live key-value configuration store, backed by
// one flat JSON document per layer. Keys are dotted identifiers stored as
// literal top-level keys, not nested objects.
type SettingsFile struct {
	dir string
	mu  sync.RWMutex
}

// NewSettingsFile creates the store over a directory, creating it if needed
func NewSettingsFile(dir string) (*SettingsFile, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	return &SettingsFile{dir: dir}, nil
}

// Dir returns the watched settings directory
func (s *SettingsFile) Dir() string { return s.dir }

// Get returns the effective value for a key, most specific layer wins
func (s *SettingsFile) Get(key string) (any, bool) {
	insp, err := s.Inspect(key)
	if err != nil {
		return nil, false
	}
	return insp.Sample()
}

// Inspect returns the key's value across all layers
func (s *SettingsFile) Inspect(key string) (domain.ValueInspection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	insp := domain.ValueInspection{
		Default:         s.layerValue(fileDefaults, key),
		Global:          s.layerValue(fileGlobal, key),
		Workspace:       s.layerValue(fileWorkspace, key),
		WorkspaceFolder: s.layerValue(fileWorkspaceFolder, key),
	}
	return insp, nil
}

// Update writes a value into the given scope's layer document. Unknown
// scopes default to global, matching the host contract.
func (s *SettingsFile) Update(key string, value any, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := fileGlobal
	switch scope {
	case "workspace":
		file = fileWorkspace
	case "workspaceFolder":
		file = fileWorkspaceFolder
	case "default":
		file = fileDefaults
	}

	path := filepath.Join(s.dir, file)
	doc, err := os.ReadFile(path) //nolint:gosec // path is under our own dir
	if err != nil {
		doc = []byte("{}")
	}

	patched, err := sjson.SetBytes(doc, escapeKey(key), value)
	if err != nil {
		return fmt.Errorf("patch %s: %w", key, err)
	}

	// write via temp file so a watcher never sees a half-written document
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, patched, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", file, err)
	}
	return nil
}

func (s *SettingsFile) layerValue(file, key string) domain.LayerValue {
	doc, err := os.ReadFile(filepath.Join(s.dir, file)) //nolint:gosec // path is under our own dir
	if err != nil {
		return domain.LayerValue{}
	}
	v := gjson.GetBytes(doc, escapeKey(key))
	if !v.Exists() {
		return domain.LayerValue{}
	}
	return domain.LayerValue{Value: v.Value(), Defined: true}
}

// escapeKey escapes dots so a dotted setting key addresses one literal
// top-level JSON key
func escapeKey(key string) string {
	key = strings.ReplaceAll(key, `\`, `\\`)
	key = strings.ReplaceAll(key, ".", `\.`)
	return key
}

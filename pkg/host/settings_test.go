package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFile_Layers(t *testing.T) {
	dir := t.TempDir()
	writeLayer := func(file, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o600))
	}
	writeLayer(fileDefaults, `{"editor.fontSize": 12, "editor.autoSave": false}`)
	writeLayer(fileGlobal, `{"editor.fontSize": 14}`)
	writeLayer(fileWorkspace, `{"editor.fontSize": 16, "chat.enabled": true}`)

	s, err := NewSettingsFile(dir)
	require.NoError(t, err)

	t.Run("most specific layer wins", func(t *testing.T) {
		v, ok := s.Get("editor.fontSize")
		require.True(t, ok)
		assert.EqualValues(t, 16.0, v)
	})

	t.Run("falls back to defaults", func(t *testing.T) {
		v, ok := s.Get("editor.autoSave")
		require.True(t, ok)
		assert.Equal(t, false, v)
	})

	t.Run("absent key", func(t *testing.T) {
		_, ok := s.Get("no.such.key")
		assert.False(t, ok)
	})

	t.Run("inspect exposes every layer", func(t *testing.T) {
		insp, err := s.Inspect("editor.fontSize")
		require.NoError(t, err)
		assert.True(t, insp.Default.Defined)
		assert.EqualValues(t, 12.0, insp.Default.Value)
		assert.True(t, insp.Global.Defined)
		assert.True(t, insp.Workspace.Defined)
		assert.False(t, insp.WorkspaceFolder.Defined)
		assert.True(t, insp.UserDefined())
	})

	t.Run("default-only value is not user defined", func(t *testing.T) {
		insp, err := s.Inspect("editor.autoSave")
		require.NoError(t, err)
		assert.False(t, insp.UserDefined())
	})
}

func TestSettingsFile_Update(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSettingsFile(dir)
	require.NoError(t, err)

	t.Run("creates layer file on first write", func(t *testing.T) {
		require.NoError(t, s.Update("chat.enabled", true, "global"))
		v, ok := s.Get("chat.enabled")
		require.True(t, ok)
		assert.Equal(t, true, v)
	})

	t.Run("scope routes to the right file", func(t *testing.T) {
		require.NoError(t, s.Update("a.b", "ws", "workspace"))
		require.NoError(t, s.Update("a.b", "wsf", "workspaceFolder"))
		require.NoError(t, s.Update("a.b", "def", "default"))

		insp, err := s.Inspect("a.b")
		require.NoError(t, err)
		assert.Equal(t, "ws", insp.Workspace.Value)
		assert.Equal(t, "wsf", insp.WorkspaceFolder.Value)
		assert.Equal(t, "def", insp.Default.Value)

		v, _ := insp.Sample()
		assert.Equal(t, "wsf", v, "folder layer most specific")
	})

	t.Run("unknown scope falls back to global", func(t *testing.T) {
		require.NoError(t, s.Update("x.y", 42, "whatever"))
		insp, err := s.Inspect("x.y")
		require.NoError(t, err)
		assert.True(t, insp.Global.Defined)
	})

	t.Run("dotted key stays a single literal key", func(t *testing.T) {
		require.NoError(t, s.Update("deeply.dotted.key", "v", "global"))

		doc, err := os.ReadFile(filepath.Join(dir, fileGlobal))
		require.NoError(t, err)
		assert.Contains(t, string(doc), `"deeply.dotted.key"`)
		assert.NotContains(t, string(doc), `"deeply":{`)

		v, ok := s.Get("deeply.dotted.key")
		require.True(t, ok)
		assert.Equal(t, "v", v)
	})

	t.Run("no temp file left behind", func(t *testing.T) {
		require.NoError(t, s.Update("k", "v", "global"))
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp")
		}
	})
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, `a\.b\.c`, escapeKey("a.b.c"))
	assert.Equal(t, "plain", escapeKey("plain"))
	assert.Equal(t, `with\\slash\.dot`, escapeKey(`with\slash.dot`))
}

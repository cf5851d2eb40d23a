package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/umputun/confscope/pkg/domain"
)

func TestEvaluateRecommendations(t *testing.T) {
	defs := []domain.SettingDefinition{
		{Key: "editor.autoSave", Type: domain.TypeBoolean, Recommended: true},
		{Key: "terminal.scrollback", Type: domain.TypeNumber, Recommended: float64(500)},
		{Key: "telemetry.level", Type: domain.TypeString, Recommended: "off"},
		{Key: "editor.fontSize", Type: domain.TypeNumber}, // no recommendation
	}
	current := func(key string) (any, bool) {
		values := map[string]any{
			"editor.autoSave":     false,        // differs from recommended true
			"terminal.scrollback": float64(500), // matches
			"telemetry.level":     "off",        // matches
		}
		v, ok := values[key]
		return v, ok
	}

	annotated, summary := EvaluateRecommendations(defs, current)

	assert.True(t, annotated[0].HasRecommendation)
	assert.False(t, annotated[0].MatchesRecommendation, "false vs recommended true")
	assert.True(t, annotated[1].MatchesRecommendation)
	assert.True(t, annotated[2].MatchesRecommendation)
	assert.False(t, annotated[3].HasRecommendation)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Matching)
	assert.Equal(t, 1, summary.Differing)
	assert.Equal(t, summary.Total, summary.Matching+summary.Differing)

	// input left untouched
	assert.False(t, defs[0].HasRecommendation)
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name        string
		typ         domain.SettingType
		current     any
		recommended any
		want        bool
	}{
		{"bool exact", domain.TypeBoolean, true, true, true},
		{"bool differs", domain.TypeBoolean, false, true, false},
		{"bool truthy string", domain.TypeBoolean, "yes", true, true},
		{"bool falsy string", domain.TypeBoolean, "false", true, false},
		{"bool numeric one", domain.TypeBoolean, float64(1), true, true},

		{"number equal floats", domain.TypeNumber, float64(500), float64(500), true},
		{"number int vs float", domain.TypeNumber, 500, float64(500), true},
		{"number string coerced", domain.TypeNumber, "500", float64(500), true},
		{"number json number", domain.TypeNumber, json.Number("500"), float64(500), true},
		{"number differs", domain.TypeNumber, float64(499), float64(500), false},
		{"number unparsable string", domain.TypeNumber, "lots", float64(500), false},

		{"string equal", domain.TypeString, "off", "off", true},
		{"string differs", domain.TypeString, "on", "off", false},
		{"string vs float formats", domain.TypeString, float64(5), "5", true},

		{"structured maps equal", domain.TypeStructured,
			map[string]any{"a": float64(1), "b": "x"},
			map[string]any{"b": "x", "a": float64(1)}, true},
		{"structured differs", domain.TypeStructured,
			map[string]any{"a": float64(1)},
			map[string]any{"a": float64(2)}, false},
		{"structured slices equal", domain.TypeStructured,
			[]any{"a", "b"}, []any{"a", "b"}, true},

		{"nil matches nil only", "", nil, nil, true},
		{"nil current vs value", domain.TypeBoolean, nil, true, false},
		{"value vs nil recommended", domain.TypeString, "x", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matches(tt.typ, tt.current, tt.recommended))
		})
	}
}

func TestTruthy(t *testing.T) {
	assert.True(t, truthy(true))
	assert.False(t, truthy(false))
	assert.False(t, truthy(""))
	assert.False(t, truthy("0"))
	assert.True(t, truthy("anything"))
	assert.False(t, truthy(float64(0)))
	assert.True(t, truthy(42))
	assert.False(t, truthy(nil))
	assert.True(t, truthy(map[string]any{}), "objects are truthy")
}

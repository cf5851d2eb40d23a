package domain

import "time"

// SettingType is the display type of a setting value
type SettingType string

// setting types understood by the presentation layer
const (
	TypeBoolean    SettingType = "boolean"
	TypeNumber     SettingType = "number"
	TypeString     SettingType = "string"
	TypeStructured SettingType = "structured"
)

// Option is one enumerated choice for a setting
type Option struct {
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// SettingDefinition is a fully typed, display-ready description of one
// configuration key. Definitions are built fresh on every load and never
// mutated in place; annotation steps return modified copies.
type SettingDefinition struct {
	Key         string      `json:"key"`
	Type        SettingType `json:"type"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Group       string      `json:"group"`
	Info        string      `json:"info,omitempty"`

	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    *float64 `json:"step,omitempty"`
	Options []Option `json:"options,omitempty"`

	Requires    []string `json:"requires,omitempty"`
	Default     any      `json:"default,omitempty"`
	Recommended any      `json:"recommended,omitempty"`

	HasRecommendation     bool     `json:"hasRecommendation"`
	MatchesRecommendation bool     `json:"matchesRecommendation"`
	IsNew                 bool     `json:"isNew"`
	MissingCapabilities   []string `json:"missingCapabilities,omitempty"`
}

// RawConfigEntry is one untyped entry from the source document, already
// expanded out of its group container. Raw keeps the original JSON so the
// enricher can apply explicit overrides without re-marshaling.
type RawConfigEntry struct {
	Key string
	Raw []byte
}

// LoadResult is broadcast to subscribers on every (re)load
type LoadResult struct {
	Definitions []SettingDefinition `json:"definitions"`
	Source      string              `json:"source"` // "remote" or "local"
	Timestamp   time.Time           `json:"timestamp"`
}

// load result sources
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

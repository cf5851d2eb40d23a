package domain

import "time"

// LayerValue is one layer of an inspected configuration value. Defined
// distinguishes an explicit nil from an absent value.
type LayerValue struct {
	Value   any
	Defined bool
}

// ValueInspection holds a setting's value across all configuration layers
type ValueInspection struct {
	Global          LayerValue
	Workspace       LayerValue
	WorkspaceFolder LayerValue
	Default         LayerValue
}

// Sample returns the most specific defined value, used for runtime type
// inference. Default-layer values participate too: a default is still a
// representative sample of the setting's type.
func (v ValueInspection) Sample() (any, bool) {
	for _, l := range []LayerValue{v.WorkspaceFolder, v.Workspace, v.Global, v.Default} {
		if l.Defined {
			return l.Value, true
		}
	}
	return nil, false
}

// UserDefined reports whether the user explicitly set the value at any
// non-default layer.
func (v ValueInspection) UserDefined() bool {
	return v.Global.Defined || v.Workspace.Defined || v.WorkspaceFolder.Defined
}

// RecommendationSummary aggregates recommendation matching over all
// definitions that carry a recommended value.
type RecommendationSummary struct {
	Total     int `json:"total"`
	Matching  int `json:"matching"`
	Differing int `json:"differing"`
}

// SettingsState is the consolidated snapshot consumed by the presentation
// layer. It is recomputed fresh on every build and never cached internally.
type SettingsState struct {
	Settings              map[string]any        `json:"settings"`
	Definitions           []SettingDefinition   `json:"definitions"`
	Groups                []string              `json:"groups"`
	RemotePending         bool                  `json:"remotePending"`
	RemoteLastChecked     time.Time             `json:"remoteLastChecked"`
	RecommendationSummary RecommendationSummary `json:"recommendationSummary"`
	NewSettingsCount      int                   `json:"newSettingsCount"`
	HasNewSettings        bool                  `json:"hasNewSettings"`
	NewSettingsByGroup    map[string]int        `json:"newSettingsByGroup"`
}

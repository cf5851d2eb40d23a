package enrich

import "strings"

// groupLabels maps a key's first dotted segment to a human label. Unlisted
// segments are capitalized as-is.
var groupLabels = map[string]string{
	"editor":    "Editor",
	"terminal":  "Terminal",
	"workbench": "Workbench",
	"files":     "Files",
	"chat":      "Chat",
	"agent":     "Agent",
	"telemetry": "Telemetry",
	"security":  "Security",
	"update":    "Updates",
}

// GroupLabel derives the display group for a setting key
func GroupLabel(key string) string {
	segment, _, _ := strings.Cut(key, ".")
	if segment == "" {
		return "General"
	}
	if label, ok := groupLabels[segment]; ok {
		return label
	}
	return strings.ToUpper(segment[:1]) + segment[1:]
}

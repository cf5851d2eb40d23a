package state

import (
	"context"
	"time"

	"github.com/umputun/confscope/pkg/domain"
)

// Values exposes effective live configuration values
type Values interface {
	Get(key string) (any, bool)
}

// Capabilities answers availability of capability ids
type Capabilities interface {
	IsAvailable(id string) bool
}

// Newness classifies keys as new or seen
type Newness interface {
	IsNew(key string) bool
}

// RemoteStatus reports the poller's persisted flags
type RemoteStatus interface {
	Pending(ctx context.Context) bool
	LastChecked(ctx context.Context) time.Time
}

// Assembler produces the consolidated read-only snapshot consumed by the
// presentation layer. Build is idempotent and side-effect free given
// unchanged external state; nothing is cached between calls.
type Assembler struct {
	values Values
	caps   Capabilities
	seen   Newness
	remote RemoteStatus
}

// NewAssembler creates an assembler
func NewAssembler(values Values, caps Capabilities, seen Newness, remote RemoteStatus) *Assembler {
	return &Assembler{values: values, caps: caps, seen: seen, remote: remote}
}

// Build composes the full settings state from the given definitions
func (a *Assembler) Build(ctx context.Context, defs []domain.SettingDefinition) domain.SettingsState {
	annotated, summary := EvaluateRecommendations(defs, a.values.Get)

	for i := range annotated {
		annotated[i].MissingCapabilities = a.missingCapabilities(annotated[i])
		annotated[i].IsNew = a.seen.IsNew(annotated[i].Key)
	}

	values := map[string]any{}
	for _, def := range annotated {
		if v, ok := a.values.Get(def.Key); ok {
			values[def.Key] = v
		}
	}

	groups := make([]string, 0)
	groupSet := map[string]bool{}
	newByGroup := map[string]int{}
	newCount := 0
	for _, def := range annotated {
		if !groupSet[def.Group] {
			groupSet[def.Group] = true
			groups = append(groups, def.Group) // dedup, first-seen order
		}
		if def.IsNew {
			newCount++
			newByGroup[def.Group]++
		}
	}

	return domain.SettingsState{
		Settings:              values,
		Definitions:           annotated,
		Groups:                groups,
		RemotePending:         a.remote.Pending(ctx),
		RemoteLastChecked:     a.remote.LastChecked(ctx),
		RecommendationSummary: summary,
		NewSettingsCount:      newCount,
		HasNewSettings:        newCount > 0,
		NewSettingsByGroup:    newByGroup,
	}
}

// missingCapabilities cross-references required ids against what is
// currently available
func (a *Assembler) missingCapabilities(def domain.SettingDefinition) []string {
	var missing []string
	for _, id := range def.Requires {
		if !a.caps.IsAvailable(id) {
			missing = append(missing, id)
		}
	}
	return missing
}

package enrich

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/umputun/confscope/pkg/domain"
)

// Inspector exposes the host's layered configuration values
type Inspector interface {
	Inspect(key string) (domain.ValueInspection, error)
}

// Enricher turns one raw config entry into a fully typed SettingDefinition.
// Three ordered passes build the definition, each allowed to override the
// previous: schema inference, live-value inference, explicit overrides from
// the raw entry itself. Enrich never fails; any inspection error is treated
// as "no information" and later passes decide.
type Enricher struct {
	catalog   *Catalog
	inspector Inspector
	selfID    string // capability id of this module, not reported as required
}

// NewEnricher creates an enricher
func NewEnricher(catalog *Catalog, inspector Inspector, selfID string) *Enricher {
	return &Enricher{catalog: catalog, inspector: inspector, selfID: selfID}
}

// Enrich builds a definition for a key from its raw source entry
func (e *Enricher) Enrich(key string, raw []byte) domain.SettingDefinition {
	def := domain.SettingDefinition{
		Key:   key,
		Type:  domain.TypeString,
		Group: GroupLabel(key),
	}

	e.applySchema(&def)
	e.applyLiveValue(&def)
	applyExplicit(&def, raw)

	return def
}

// applySchema infers type, options, bounds and default from the first
// capability schema declaring the key
func (e *Enricher) applySchema(def *domain.SettingDefinition) {
	if e.catalog == nil {
		return
	}
	node, owner, ok := e.catalog.Find(def.Key)
	if !ok {
		return
	}

	switch node.Type {
	case "boolean":
		def.Type = domain.TypeBoolean
	case "number":
		def.Type = domain.TypeNumber
	case "integer":
		def.Type = domain.TypeNumber
		step := 1.0
		def.Step = &step
	case "object", "array":
		def.Type = domain.TypeStructured
	default:
		def.Type = domain.TypeString
	}

	if opts := optionsFromSchema(node); len(opts) > 0 {
		def.Options = opts
	}
	if node.Minimum != nil {
		v := *node.Minimum
		def.Min = &v
	}
	if node.Maximum != nil {
		v := *node.Maximum
		def.Max = &v
	}
	if node.Description != "" && def.Description == "" {
		def.Description = node.Description
	}
	if owner != "" && owner != e.selfID {
		def.Requires = append(def.Requires, owner)
	}
	if def.Default == nil && node.Default != nil {
		def.Default = node.Default
	}
}

// optionsFromSchema extracts enumerated options from an enum with parallel
// descriptions, or from oneOf/anyOf alternatives carrying a const or a
// singleton enum
func optionsFromSchema(node SchemaNode) []domain.Option {
	if len(node.Enum) > 0 {
		opts := make([]domain.Option, 0, len(node.Enum))
		for i, v := range node.Enum {
			opt := domain.Option{Value: fmt.Sprint(v)}
			if i < len(node.EnumDescriptions) {
				opt.Description = node.EnumDescriptions[i]
			}
			opts = append(opts, opt)
		}
		return opts
	}

	alts := node.OneOf
	if len(alts) == 0 {
		alts = node.AnyOf
	}
	var opts []domain.Option
	for _, alt := range alts {
		var value any
		switch {
		case alt.Const != nil:
			value = alt.Const
		case len(alt.Enum) == 1:
			value = alt.Enum[0]
		default:
			continue
		}
		opts = append(opts, domain.Option{Value: fmt.Sprint(value), Description: alt.Description})
	}
	return opts
}

// applyLiveValue inspects the user's configuration layers; a runtime sample
// overrides the inferred type, and the default layer fills in a still-unset
// default
func (e *Enricher) applyLiveValue(def *domain.SettingDefinition) {
	if e.inspector == nil {
		return
	}
	insp, err := e.inspector.Inspect(def.Key)
	if err != nil {
		return // no information
	}

	if sample, ok := insp.Sample(); ok && sample != nil {
		def.Type = typeOfValue(sample)
	}
	if def.Default == nil && insp.Default.Defined {
		def.Default = insp.Default.Value
	}
}

// typeOfValue maps a runtime value to a setting type
func typeOfValue(v any) domain.SettingType {
	switch v.(type) {
	case bool:
		return domain.TypeBoolean
	case float64, float32, int, int64, int32:
		return domain.TypeNumber
	case string:
		return domain.TypeString
	default:
		return domain.TypeStructured
	}
}

// applyExplicitType maps a declared type onto the fixed type set. Source
// documents use JSON-schema vocabulary, so "integer" is accepted the same way
// the schema pass accepts it; an unrecognized string keeps the inferred type.
func applyExplicitType(def *domain.SettingDefinition, t string) {
	switch t {
	case "boolean":
		def.Type = domain.TypeBoolean
	case "number":
		def.Type = domain.TypeNumber
	case "integer":
		def.Type = domain.TypeNumber
		if def.Step == nil {
			step := 1.0
			def.Step = &step
		}
	case "string":
		def.Type = domain.TypeString
	case "structured", "object", "array":
		def.Type = domain.TypeStructured
	}
}

// applyExplicit applies fields present on the raw entry itself, these win
// outright over everything inferred
func applyExplicit(def *domain.SettingDefinition, raw []byte) {
	if len(raw) == 0 {
		return
	}

	if v := gjson.GetBytes(raw, "type"); v.Exists() {
		applyExplicitType(def, v.String())
	}
	if v := gjson.GetBytes(raw, "title"); v.Exists() {
		def.Title = v.String()
	}
	if v := gjson.GetBytes(raw, "description"); v.Exists() {
		def.Description = v.String()
	}
	if v := gjson.GetBytes(raw, "info"); v.Exists() {
		def.Info = v.String()
	}
	if v := gjson.GetBytes(raw, "group"); v.Exists() {
		def.Group = v.String()
	}
	if v := gjson.GetBytes(raw, "min"); v.Exists() {
		f := v.Float()
		def.Min = &f
	}
	if v := gjson.GetBytes(raw, "max"); v.Exists() {
		f := v.Float()
		def.Max = &f
	}
	if v := gjson.GetBytes(raw, "step"); v.Exists() {
		f := v.Float()
		def.Step = &f
	}
	if v := gjson.GetBytes(raw, "default"); v.Exists() {
		def.Default = v.Value()
	}
	if v := gjson.GetBytes(raw, "recommended"); v.Exists() {
		def.Recommended = v.Value()
	}
	if v := gjson.GetBytes(raw, "requires"); v.Exists() && v.IsArray() {
		reqs := make([]string, 0, len(v.Array()))
		for _, r := range v.Array() {
			reqs = append(reqs, r.String())
		}
		def.Requires = reqs
	}
	if v := gjson.GetBytes(raw, "options"); v.Exists() && v.IsArray() {
		opts := make([]domain.Option, 0, len(v.Array()))
		for _, o := range v.Array() {
			if o.IsObject() {
				opts = append(opts, domain.Option{Value: o.Get("value").String(), Description: o.Get("description").String()})
				continue
			}
			opts = append(opts, domain.Option{Value: o.String()})
		}
		def.Options = opts
	}
}

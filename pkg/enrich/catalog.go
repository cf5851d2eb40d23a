package enrich

import "encoding/json"

// SchemaNode is the subset of a JSON-schema property node the enricher cares
// about. Capabilities declare these for the settings they contribute.
type SchemaNode struct {
	Type             SchemaType   `json:"type,omitempty"`
	Enum             []any        `json:"enum,omitempty"`
	EnumDescriptions []string     `json:"enumDescriptions,omitempty"`
	OneOf            []SchemaNode `json:"oneOf,omitempty"`
	AnyOf            []SchemaNode `json:"anyOf,omitempty"`
	Const            any          `json:"const,omitempty"`
	Minimum          *float64     `json:"minimum,omitempty"`
	Maximum          *float64     `json:"maximum,omitempty"`
	Default          any          `json:"default,omitempty"`
	Description      string       `json:"description,omitempty"`
}

// SchemaType accepts both "type": "string" and "type": ["string", "null"],
// keeping the first entry of the array form.
type SchemaType string

// UnmarshalJSON implements json.Unmarshaler
func (t *SchemaType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = SchemaType(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
		*t = SchemaType(list[0])
		return nil
	}
	// unrecognized shape means no declared type, not an error
	*t = ""
	return nil
}

// Capability is one installable unit that may contribute configuration schema
type Capability struct {
	ID         string
	Properties map[string]SchemaNode
}

// CapabilityProvider enumerates registered capabilities in a stable order
type CapabilityProvider interface {
	Capabilities() []Capability
	IsAvailable(id string) bool
}

// Catalog scans every registered capability's declared schema for a property
// matching a key. The capability list is open ended and discovered at
// runtime, so lookups iterate in registration order, first match wins.
type Catalog struct {
	provider CapabilityProvider
}

// NewCatalog creates a catalog over a capability provider
func NewCatalog(provider CapabilityProvider) *Catalog {
	return &Catalog{provider: provider}
}

// Find returns the schema node for a key and the id of the owning capability
func (c *Catalog) Find(key string) (node SchemaNode, owner string, ok bool) {
	if c.provider == nil {
		return SchemaNode{}, "", false
	}
	for _, capability := range c.provider.Capabilities() {
		if n, found := capability.Properties[key]; found {
			return n, capability.ID, true
		}
	}
	return SchemaNode{}, "", false
}

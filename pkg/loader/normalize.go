package loader

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/umputun/confscope/pkg/domain"
)

// normalize flattens a settings document into raw config entries. Two shapes
// are accepted: {"settings": [...]} and a bare top-level array. Group
// containers ({group, settings, requires?, recommended?}) are expanded,
// members inherit group-level requires/recommended unless they carry their
// own. Entries without a key are dropped.
func normalize(data []byte) ([]domain.RawConfigEntry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json")
	}

	root := gjson.ParseBytes(data)
	list := root
	if root.IsObject() {
		list = root.Get("settings")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("no settings array")
	}

	var entries []domain.RawConfigEntry
	for _, item := range list.Array() {
		if !item.IsObject() {
			continue
		}

		if item.Get("group").Exists() && item.Get("settings").IsArray() {
			entries = append(entries, expandGroup(item)...)
			continue
		}

		if key := item.Get("key").String(); key != "" {
			entries = append(entries, domain.RawConfigEntry{Key: key, Raw: []byte(item.Raw)})
		}
	}
	return entries, nil
}

// expandGroup flattens a group container, pushing group-level fields down
// into members that don't override them
func expandGroup(group gjson.Result) []domain.RawConfigEntry {
	groupName := group.Get("group")
	requires := group.Get("requires")
	recommended := group.Get("recommended")

	var entries []domain.RawConfigEntry
	for _, member := range group.Get("settings").Array() {
		if !member.IsObject() {
			continue
		}
		key := member.Get("key").String()
		if key == "" {
			continue
		}

		raw := []byte(member.Raw)
		raw = inherit(raw, "group", groupName)
		raw = inherit(raw, "requires", requires)
		raw = inherit(raw, "recommended", recommended)

		entries = append(entries, domain.RawConfigEntry{Key: key, Raw: raw})
	}
	return entries
}

// inherit sets a field on the member JSON only when the member doesn't
// already define it (member wins)
func inherit(raw []byte, field string, value gjson.Result) []byte {
	if !value.Exists() || gjson.GetBytes(raw, field).Exists() {
		return raw
	}
	patched, err := sjson.SetRawBytes(raw, field, []byte(value.Raw))
	if err != nil {
		return raw
	}
	return patched
}

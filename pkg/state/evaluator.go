package state

import (
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/umputun/confscope/pkg/domain"
)

// EvaluateRecommendations annotates each definition carrying a recommended
// value with HasRecommendation and a type-aware MatchesRecommendation, and
// aggregates the summary. Comparison never fails on a type mismatch; it is
// simply reported as non-matching.
func EvaluateRecommendations(defs []domain.SettingDefinition, current func(key string) (any, bool)) ([]domain.SettingDefinition, domain.RecommendationSummary) {
	out := make([]domain.SettingDefinition, len(defs))
	copy(out, defs)

	var summary domain.RecommendationSummary
	for i := range out {
		if out[i].Recommended == nil {
			continue
		}
		out[i].HasRecommendation = true
		summary.Total++

		value, _ := current(out[i].Key)
		if matches(out[i].Type, value, out[i].Recommended) {
			out[i].MatchesRecommendation = true
			summary.Matching++
		} else {
			summary.Differing++
		}
	}
	return out, summary
}

// matches compares a live value with a recommendation under the setting's
// type rule. A nil current value matches only a nil recommendation.
func matches(t domain.SettingType, current, recommended any) bool {
	if current == nil || recommended == nil {
		return current == nil && recommended == nil
	}

	switch t {
	case domain.TypeBoolean:
		return truthy(current) == truthy(recommended)
	case domain.TypeNumber:
		cv, cok := toFloat(current)
		rv, rok := toFloat(recommended)
		return cok && rok && cv == rv
	case domain.TypeStructured:
		return deepEqual(current, recommended)
	default: // string and anything unrecognized compare as strings
		return toString(current) == toString(recommended)
	}
}

// truthy coerces a value the way a dynamic runtime would
func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != "" && x != "false" && x != "0"
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case nil:
		return false
	default:
		return true
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// deepEqual compares structured values, falling back to serialized equality
// so that equivalent maps decoded from different sources still match
func deepEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}

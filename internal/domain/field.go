package domain

import (
	"sort"
	"strings"
)

// FieldKind represents the value shape of a profile field.
type FieldKind string

const (
	FieldKindString    FieldKind = "STRING"
	FieldKindList      FieldKind = "STRING_LIST"
	FieldKindNumberMap FieldKind = "NUMBER_MAP"
)

func (k FieldKind) String() string { return string(k) }

func (k FieldKind) IsValid() bool {
	switch k {
	case FieldKindString, FieldKindList, FieldKindNumberMap:
		return true
	}
	return false
}

// FieldValue is the tagged union holding one profile field value.
// Exactly one of Text, List, Map is meaningful, selected by Kind.
type FieldValue struct {
	Kind FieldKind
	Text string
	List []string
	Map  map[string]float64
}

// StringValue wraps a scalar string field value.
func StringValue(s string) FieldValue {
	return FieldValue{Kind: FieldKindString, Text: s}
}

// ListValue wraps a string-list field value.
func ListValue(items ...string) FieldValue {
	return FieldValue{Kind: FieldKindList, List: items}
}

// MapValue wraps a string-keyed numeric map field value.
func MapValue(m map[string]float64) FieldValue {
	return FieldValue{Kind: FieldKindNumberMap, Map: m}
}

// Equal reports deep equality of two field values.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case FieldKindString:
		return v.Text == o.Text
	case FieldKindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != o.List[i] {
				return false
			}
		}
		return true
	case FieldKindNumberMap:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for k, n := range v.Map {
			on, ok := o.Map[k]
			if !ok || on != n {
				return false
			}
		}
		return true
	}
	return false
}

// MapKeys returns the map keys in sorted order (deterministic encoding).
func (v FieldValue) MapKeys() []string {
	keys := make([]string, 0, len(v.Map))
	for k := range v.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// placeholderTokens are string values that structurally exist but mean
// "no data". The set is consulted by exactly one predicate so the policy
// lives in one place (validator, extractor and projections all call it).
var placeholderTokens = map[string]struct{}{
	"":              {},
	"-":             {},
	"n/a":           {},
	"na":            {},
	"none":          {},
	"null":          {},
	"nil":           {},
	"unknown":       {},
	"not specified": {},
	"not sure":      {},
	"tbd":           {},
}

// IsPlaceholderText reports whether s carries no information.
func IsPlaceholderText(s string) bool {
	_, ok := placeholderTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// IsMeaningful reports whether v holds real data. A field value that is
// empty, or whose entries are all placeholders, is treated as absent.
func IsMeaningful(v FieldValue) bool {
	switch v.Kind {
	case FieldKindString:
		return !IsPlaceholderText(v.Text)
	case FieldKindList:
		for _, item := range v.List {
			if !IsPlaceholderText(item) {
				return true
			}
		}
		return false
	case FieldKindNumberMap:
		return len(v.Map) > 0
	}
	return false
}

package extract

import (
	"encoding/json"
	"strings"

	"github.com/carevine/onboarding-backend/internal/domain"
)

// ToStorageForm flattens profile fields into the per-column storage
// representation: scalars pass through, lists and maps JSON-encode, and
// placeholder values are omitted entirely (never stored as null-likes).
func ToStorageForm(fields map[string]domain.FieldValue) map[string]string {
	out := make(map[string]string, len(fields))
	for _, d := range domain.Schema() {
		v, ok := fields[d.Name]
		if !ok || !domain.IsMeaningful(v) {
			continue
		}
		switch d.Kind {
		case domain.FieldKindString:
			out[d.Name] = strings.TrimSpace(v.Text)
		case domain.FieldKindList:
			if v.Kind == domain.FieldKindString {
				// A raw scalar kept by FromStorageForm round-trips as-is.
				out[d.Name] = strings.TrimSpace(v.Text)
				continue
			}
			kept := make([]string, 0, len(v.List))
			for _, item := range v.List {
				if !domain.IsPlaceholderText(item) {
					kept = append(kept, strings.TrimSpace(item))
				}
			}
			if len(kept) == 0 {
				continue
			}
			// Marshal of []string cannot fail.
			b, _ := json.Marshal(kept)
			out[d.Name] = string(b)
		case domain.FieldKindNumberMap:
			if v.Kind == domain.FieldKindString {
				out[d.Name] = strings.TrimSpace(v.Text)
				continue
			}
			b, _ := json.Marshal(v.Map)
			out[d.Name] = string(b)
		}
	}
	return out
}

// FromStorageForm is the inverse of ToStorageForm. Values that fail to
// parse as structured data are kept as raw scalars; decoded lists have
// their placeholder entries filtered, and a list or map that ends up
// empty is treated as absent rather than as an empty collection.
func FromStorageForm(columns map[string]*string) map[string]domain.FieldValue {
	fields := make(map[string]domain.FieldValue)
	for _, d := range domain.Schema() {
		raw, ok := columns[d.Name]
		if !ok || raw == nil || domain.IsPlaceholderText(*raw) {
			continue
		}
		switch d.Kind {
		case domain.FieldKindString:
			fields[d.Name] = domain.StringValue(*raw)
		case domain.FieldKindList:
			var list []string
			if err := json.Unmarshal([]byte(*raw), &list); err != nil {
				fields[d.Name] = domain.StringValue(*raw)
				continue
			}
			kept := make([]string, 0, len(list))
			for _, item := range list {
				if !domain.IsPlaceholderText(item) {
					kept = append(kept, item)
				}
			}
			if len(kept) == 0 {
				continue
			}
			fields[d.Name] = domain.ListValue(kept...)
		case domain.FieldKindNumberMap:
			var m map[string]float64
			if err := json.Unmarshal([]byte(*raw), &m); err != nil {
				fields[d.Name] = domain.StringValue(*raw)
				continue
			}
			if len(m) == 0 {
				continue
			}
			fields[d.Name] = domain.MapValue(m)
		}
	}
	return fields
}

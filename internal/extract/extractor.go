package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/carevine/onboarding-backend/internal/domain"
)

// Extractor validates raw structured payloads against the field schema and
// produces minimal profile deltas. It is safe for concurrent use.
type Extractor struct {
	schema *jsonschema.Schema
	log    *slog.Logger
}

// New compiles the payload JSON Schema from the field schema and returns
// a ready Extractor.
func New(log *slog.Logger) (*Extractor, error) {
	if log == nil {
		log = slog.Default()
	}
	raw, err := json.Marshal(PayloadJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal payload schema: %w", err)
	}
	compiled, err := jsonschema.CompileString("profile_payload.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}
	return &Extractor{schema: compiled, log: log.With("component", "extractor")}, nil
}

// PayloadJSONSchema returns the JSON-Schema (draft 2020-12 subset) for a
// structured extraction payload, as a generic map. It is passed to the
// generative model as a structured-output constraint and used locally to
// validate the payload's shape.
func PayloadJSONSchema() map[string]any {
	props := map[string]any{}
	for _, d := range domain.Schema() {
		switch d.Kind {
		case domain.FieldKindList:
			props[d.Name] = map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": d.Prompt,
			}
		case domain.FieldKindNumberMap:
			props[d.Name] = map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "number"},
				"description":          d.Prompt,
			}
		default:
			props[d.Name] = map[string]any{
				"type":        "string",
				"description": d.Prompt,
			}
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// Extract validates raw against the field schema, strips placeholder and
// semantically invalid values, and returns the minimal delta plus the
// touched field names in schema order. A structurally hopeless payload is
// rejected with an error; per-field problems only shrink the delta.
func (e *Extractor) Extract(raw []byte) (domain.Delta, error) {
	m, err := decodePayload(raw)
	if err != nil {
		return domain.Delta{}, fmt.Errorf("decode payload: %w", err)
	}

	m = e.sanitize(m)

	if err := e.schema.Validate(any(m)); err != nil {
		return domain.Delta{}, fmt.Errorf("payload shape: %w", err)
	}

	delta := domain.Delta{Fields: map[string]domain.FieldValue{}}
	for _, d := range domain.Schema() {
		rawVal, ok := m[d.Name]
		if !ok {
			continue
		}
		value, ok := coerceValue(d.Kind, rawVal)
		if !ok || !domain.IsMeaningful(value) {
			continue
		}
		valid, err := ValidateField(d.Name, value)
		if err != nil {
			e.log.Warn("extract.field_rejected", "field", d.Name, "reason", err.Error())
			continue
		}
		delta.Fields[d.Name] = valid
		delta.Touched = append(delta.Touched, d.Name)
	}
	return delta, nil
}

// decodePayload unmarshals raw into a generic map, repairing malformed
// JSON (trailing commas, single quotes, clipped braces) before giving up.
func decodePayload(raw []byte) (map[string]any, error) {
	var m map[string]any
	err := json.Unmarshal(raw, &m)
	if err == nil {
		return m, nil
	}
	fixed, rerr := jsonrepair.JSONRepair(string(raw))
	if rerr != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fixed), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// sanitize drops unknown keys and nulls, and coerces numbers to strings
// for scalar fields, so a slightly sloppy payload can still validate.
func (e *Extractor) sanitize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	var dropped []string
	for k, v := range m {
		desc, ok := domain.DescriptorFor(k)
		if !ok {
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		if v == nil {
			dropped = append(dropped, k+"(null)")
			continue
		}
		if desc.Kind == domain.FieldKindString {
			if f, isNum := v.(float64); isNum {
				v = strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
		out[k] = v
	}
	if len(dropped) > 0 {
		e.log.Warn("extract.sanitize", "dropped", dropped)
	}
	return out
}

// coerceValue converts a decoded JSON value into a FieldValue of the
// declared kind. Returns false when the value cannot be represented.
func coerceValue(kind domain.FieldKind, v any) (domain.FieldValue, bool) {
	switch kind {
	case domain.FieldKindString:
		s, ok := v.(string)
		if !ok {
			return domain.FieldValue{}, false
		}
		return domain.StringValue(s), true
	case domain.FieldKindList:
		items, ok := v.([]any)
		if !ok {
			return domain.FieldValue{}, false
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return domain.FieldValue{}, false
			}
			list = append(list, s)
		}
		return domain.ListValue(list...), true
	case domain.FieldKindNumberMap:
		obj, ok := v.(map[string]any)
		if !ok {
			return domain.FieldValue{}, false
		}
		numbers := make(map[string]float64, len(obj))
		for k, n := range obj {
			f, ok := n.(float64)
			if !ok {
				return domain.FieldValue{}, false
			}
			numbers[k] = f
		}
		return domain.MapValue(numbers), true
	}
	return domain.FieldValue{}, false
}

// Merge applies delta onto existing, field by field: a present delta value
// always overwrites, an absent one leaves the existing value untouched.
// Absence never clears a previously set field. The input maps are not
// mutated.
func Merge(existing, delta map[string]domain.FieldValue) map[string]domain.FieldValue {
	merged := make(map[string]domain.FieldValue, len(existing)+len(delta))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range delta {
		if !domain.IsMeaningful(v) {
			continue
		}
		merged[k] = v
	}
	return merged
}

// TouchedFields returns the names of fields holding a meaningful value,
// in schema order.
func TouchedFields(fields map[string]domain.FieldValue) []string {
	var names []string
	for _, d := range domain.Schema() {
		if v, ok := fields[d.Name]; ok && domain.IsMeaningful(v) {
			names = append(names, d.Name)
		}
	}
	return names
}

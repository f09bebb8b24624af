package domain

// FieldDescriptor declares one profile field: its name (also the storage
// column name), value kind, and whether it is required for a profile to
// count as complete.
type FieldDescriptor struct {
	Name     string
	Kind     FieldKind
	Required bool
	// Prompt is a short hint surfaced to the generative model describing
	// what the field holds.
	Prompt string
}

// fieldSchema is the single source of truth for the caregiver profile
// shape. Order matters: it defines storage column order, touched-field
// ordering, and the denominator for completion-percentage math.
var fieldSchema = []FieldDescriptor{
	{Name: "first_name", Kind: FieldKindString, Required: true, Prompt: "caregiver's first name"},
	{Name: "last_name", Kind: FieldKindString, Required: true, Prompt: "caregiver's last name"},
	{Name: "email", Kind: FieldKindString, Prompt: "contact email address"},
	{Name: "phone", Kind: FieldKindString, Prompt: "contact phone number"},
	{Name: "location", Kind: FieldKindString, Required: true, Prompt: "city or area where the caregiver works"},
	{Name: "bio", Kind: FieldKindString, Prompt: "short personal introduction"},
	{Name: "profile_picture_url", Kind: FieldKindString, Prompt: "http(s) URL of a profile photo"},
	{Name: "years_of_experience", Kind: FieldKindString, Prompt: "whole number of years of caregiving experience"},
	{Name: "hourly_rate", Kind: FieldKindString, Required: true, Prompt: "hourly rate in dollars, e.g. $30/hour"},
	{Name: "care_types", Kind: FieldKindList, Required: true, Prompt: "kinds of care offered, e.g. senior care, child care"},
	{Name: "languages", Kind: FieldKindList, Required: true, Prompt: "languages spoken"},
	{Name: "skills", Kind: FieldKindList, Prompt: "practical skills, e.g. meal prep, mobility assistance"},
	{Name: "certifications", Kind: FieldKindList, Prompt: "certifications held, e.g. CPR, CNA"},
	{Name: "education", Kind: FieldKindString, Prompt: "highest education or relevant training"},
	{Name: "transportation", Kind: FieldKindString, Prompt: "how the caregiver gets to clients"},
	{Name: "work_radius_miles", Kind: FieldKindString, Prompt: "how far the caregiver will travel, in miles"},
	{Name: "availability", Kind: FieldKindNumberMap, Prompt: "hours available per weekday, e.g. {\"monday\": 8}"},
	{Name: "service_rates", Kind: FieldKindNumberMap, Prompt: "per-service dollar rates, e.g. {\"overnight care\": 45}"},
}

// Schema returns the ordered field descriptors. Callers must not mutate
// the returned slice.
func Schema() []FieldDescriptor { return fieldSchema }

// TotalFields returns the schema's field count.
func TotalFields() int { return len(fieldSchema) }

// RequiredFields returns the names of fields required for completion,
// in schema order.
func RequiredFields() []string {
	var names []string
	for _, d := range fieldSchema {
		if d.Required {
			names = append(names, d.Name)
		}
	}
	return names
}

// DescriptorFor looks up a field descriptor by name.
func DescriptorFor(name string) (FieldDescriptor, bool) {
	for _, d := range fieldSchema {
		if d.Name == name {
			return d, true
		}
	}
	return FieldDescriptor{}, false
}

// IsSchemaField reports whether name is a declared profile field.
func IsSchemaField(name string) bool {
	_, ok := DescriptorFor(name)
	return ok
}

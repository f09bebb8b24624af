// Package extract turns raw model payloads into validated profile deltas
// and converts profiles to and from their flattened storage form.
//
// Two validation layers apply before a value reaches a profile: the
// payload's shape is checked against the field schema (extractor.go),
// and each field's content is checked by the semantic rules here.
package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/carevine/onboarding-backend/internal/domain"
)

const (
	minHourlyRate      = 10
	maxHourlyRate      = 200
	maxExperienceYears = 70
	maxRadiusMiles     = 500
	maxDailyHours      = 24
	minLocationLen     = 2
	minPhoneDigits     = 7
	maxPhoneDigits     = 15
)

var (
	rateRe  = regexp.MustCompile(`^\$?\s*(\d+(?:\.\d{1,2})?)\s*(?:(?:/|per)\s*(?:hr|hour|h))?\.?$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	urlRe   = regexp.MustCompile(`^https?://\S+$`)
	digitRe = regexp.MustCompile(`\D`)
)

// ValidateField type-checks value against the schema's declared kind for
// name and applies field-specific semantic rules. It returns the value in
// canonical form, or a *domain.ValidationError describing the rejection.
// Invalid input is a normal outcome, never a fault.
func ValidateField(name string, value domain.FieldValue) (domain.FieldValue, error) {
	desc, ok := domain.DescriptorFor(name)
	if !ok {
		return domain.FieldValue{}, domain.NewValidationError(name, "unknown field")
	}
	if value.Kind != desc.Kind {
		return domain.FieldValue{}, domain.NewValidationError(name,
			fmt.Sprintf("expected %s, got %s", desc.Kind, value.Kind))
	}
	if !domain.IsMeaningful(value) {
		return domain.FieldValue{}, domain.NewValidationError(name, "value is empty or a placeholder")
	}

	switch desc.Kind {
	case domain.FieldKindString:
		return validateScalar(name, strings.TrimSpace(value.Text))
	case domain.FieldKindList:
		return validateList(name, value.List)
	case domain.FieldKindNumberMap:
		return validateMap(name, value.Map)
	}
	return domain.FieldValue{}, domain.NewValidationError(name, "unsupported field kind")
}

func validateScalar(name, text string) (domain.FieldValue, error) {
	switch name {
	case "hourly_rate":
		return validateRate(name, text)
	case "years_of_experience":
		return validateBoundedInt(name, text, maxExperienceYears)
	case "work_radius_miles":
		return validateBoundedInt(name, text, maxRadiusMiles)
	case "location":
		if len(text) < minLocationLen {
			return domain.FieldValue{}, domain.NewValidationError(name, "location is too short")
		}
	case "email":
		if !emailRe.MatchString(text) {
			return domain.FieldValue{}, domain.NewValidationError(name, "not a valid email address")
		}
	case "phone":
		digits := digitRe.ReplaceAllString(text, "")
		if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
			return domain.FieldValue{}, domain.NewValidationError(name, "not a valid phone number")
		}
	case "profile_picture_url":
		if !urlRe.MatchString(text) {
			return domain.FieldValue{}, domain.NewValidationError(name, "must be an http(s) URL")
		}
	}
	return domain.StringValue(text), nil
}

// validateRate accepts forms like "$30/hr", "30/hour", "$30.50 per hour",
// or a bare "$30", and re-normalizes them to the canonical "$30/hour".
func validateRate(name, text string) (domain.FieldValue, error) {
	m := rateRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return domain.FieldValue{}, domain.NewValidationError(name, "rate must look like $30/hour")
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return domain.FieldValue{}, domain.NewValidationError(name, "rate is not a number")
	}
	if amount < minHourlyRate {
		return domain.FieldValue{}, domain.NewValidationError(name,
			fmt.Sprintf("rate below minimum of $%d/hour", minHourlyRate))
	}
	if amount > maxHourlyRate {
		return domain.FieldValue{}, domain.NewValidationError(name,
			fmt.Sprintf("rate above maximum of $%d/hour", maxHourlyRate))
	}
	canonical := "$" + strconv.FormatFloat(amount, 'f', -1, 64) + "/hour"
	return domain.StringValue(canonical), nil
}

func validateBoundedInt(name, text string, max int) (domain.FieldValue, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return domain.FieldValue{}, domain.NewValidationError(name, "must be a whole number")
	}
	if n < 0 || n > max {
		return domain.FieldValue{}, domain.NewValidationError(name,
			fmt.Sprintf("must be between 0 and %d", max))
	}
	return domain.StringValue(strconv.Itoa(n)), nil
}

func validateList(name string, items []string) (domain.FieldValue, error) {
	var kept []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if domain.IsPlaceholderText(item) {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		return domain.FieldValue{}, domain.NewValidationError(name, "list has no meaningful entries")
	}
	return domain.ListValue(kept...), nil
}

func validateMap(name string, m map[string]float64) (domain.FieldValue, error) {
	kept := make(map[string]float64, len(m))
	for k, n := range m {
		k = strings.TrimSpace(k)
		if domain.IsPlaceholderText(k) {
			continue
		}
		if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
			return domain.FieldValue{}, domain.NewValidationError(name,
				fmt.Sprintf("entry %q has an invalid value", k))
		}
		if name == "availability" && n > maxDailyHours {
			return domain.FieldValue{}, domain.NewValidationError(name,
				fmt.Sprintf("entry %q exceeds %d hours", k, maxDailyHours))
		}
		kept[strings.ToLower(k)] = n
	}
	if len(kept) == 0 {
		return domain.FieldValue{}, domain.NewValidationError(name, "map has no meaningful entries")
	}
	return domain.MapValue(kept), nil
}

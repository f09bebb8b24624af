package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProfileStatus represents the lifecycle state of an onboarding attempt.
type ProfileStatus string

const (
	ProfileStatusInProgress ProfileStatus = "IN_PROGRESS"
	ProfileStatusCompleted  ProfileStatus = "COMPLETED"
)

func (s ProfileStatus) String() string { return string(s) }

func (s ProfileStatus) IsValid() bool {
	switch s {
	case ProfileStatusInProgress, ProfileStatusCompleted:
		return true
	}
	return false
}

// Profile is the progressively-completed caregiver record. Fields holds
// only meaningful values: a field is either absent (never mentioned) or
// valid and placeholder-free. Mutated exclusively by merging extraction
// deltas; never hard-deleted.
type Profile struct {
	ID        uuid.UUID
	Status    ProfileStatus
	Fields    map[string]FieldValue
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CoveredFields returns the names of fields currently holding a meaningful
// value, in schema order.
func (p *Profile) CoveredFields() []string {
	var names []string
	for _, d := range Schema() {
		if v, ok := p.Fields[d.Name]; ok && IsMeaningful(v) {
			names = append(names, d.Name)
		}
	}
	return names
}

// RequiredComplete reports whether every required schema field is covered.
func (p *Profile) RequiredComplete() bool {
	for _, name := range RequiredFields() {
		v, ok := p.Fields[name]
		if !ok || !IsMeaningful(v) {
			return false
		}
	}
	return true
}

// Delta is the subset of profile fields newly asserted by one turn's
// extraction. Touched lists the field names in schema order.
type Delta struct {
	Fields  map[string]FieldValue
	Touched []string
}

// Empty reports whether the delta asserts nothing.
func (d Delta) Empty() bool { return len(d.Fields) == 0 }

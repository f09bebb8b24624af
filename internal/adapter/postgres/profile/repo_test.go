package profile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carevine/onboarding-backend/internal/adapter/postgres/profile"
	"github.com/carevine/onboarding-backend/internal/adapter/postgres/testhelper"
	"github.com/carevine/onboarding-backend/internal/domain"
	"github.com/carevine/onboarding-backend/internal/extract"
)

// newRepo sets up a test DB and returns a ready Repo + pool.
func newRepo(t *testing.T) (*profile.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return profile.New(pool), pool
}

// ---------------------------------------------------------------------------
// Create tests
// ---------------------------------------------------------------------------

func TestRepo_Create_HappyPath(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	id := uuid.New()
	got, err := repo.Create(ctx, id)
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	if got.ID != id {
		t.Errorf("ID mismatch: got %s, want %s", got.ID, id)
	}
	if got.Status != domain.ProfileStatusInProgress {
		t.Errorf("Status mismatch: got %s, want %s", got.Status, domain.ProfileStatusInProgress)
	}
	if len(got.Fields) != 0 {
		t.Errorf("new profile should have no fields, got %d", len(got.Fields))
	}
}

func TestRepo_Create_Duplicate(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	id := uuid.New()
	if _, err := repo.Create(ctx, id); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	_, err := repo.Create(ctx, id)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// GetByID tests
// ---------------------------------------------------------------------------

func TestRepo_GetByID_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// UpdateFields tests
// ---------------------------------------------------------------------------

func TestRepo_UpdateFields_RoundTrip(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	seeded := testhelper.SeedProfile(t, pool)

	fields := map[string]domain.FieldValue{
		"first_name":  domain.StringValue("Maria"),
		"hourly_rate": domain.StringValue("$30/hour"),
		"languages":   domain.ListValue([]string{"english", "spanish"}...),
		"availability": domain.MapValue(map[string]float64{
			"monday": 8,
			"friday": 4,
		}),
	}

	if err := repo.UpdateFields(ctx, seeded.ID, extract.ToStorageForm(fields)); err != nil {
		t.Fatalf("UpdateFields: unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}

	for name, want := range fields {
		v, ok := got.Fields[name]
		if !ok {
			t.Errorf("field %s missing after round trip", name)
			continue
		}
		if !v.Equal(want) {
			t.Errorf("field %s mismatch: got %+v, want %+v", name, v, want)
		}
	}
	if len(got.Fields) != len(fields) {
		t.Errorf("field count mismatch: got %d, want %d", len(got.Fields), len(fields))
	}
}

func TestRepo_UpdateFields_PartialUpdatePreservesOthers(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	seeded := testhelper.SeedProfile(t, pool)

	first := map[string]domain.FieldValue{
		"first_name": domain.StringValue("Maria"),
		"location":   domain.StringValue("Denver, CO"),
	}
	if err := repo.UpdateFields(ctx, seeded.ID, extract.ToStorageForm(first)); err != nil {
		t.Fatalf("UpdateFields: unexpected error: %v", err)
	}

	second := map[string]domain.FieldValue{
		"location": domain.StringValue("Boulder, CO"),
	}
	if err := repo.UpdateFields(ctx, seeded.ID, extract.ToStorageForm(second)); err != nil {
		t.Fatalf("UpdateFields: unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}

	if v := got.Fields["first_name"]; v.Text != "Maria" {
		t.Errorf("first_name clobbered: got %q, want %q", v.Text, "Maria")
	}
	if v := got.Fields["location"]; v.Text != "Boulder, CO" {
		t.Errorf("location not updated: got %q, want %q", v.Text, "Boulder, CO")
	}
}

func TestRepo_UpdateFields_UnknownColumn(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	seeded := testhelper.SeedProfile(t, pool)

	err := repo.UpdateFields(ctx, seeded.ID, map[string]string{"favorite_color": "blue"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestRepo_UpdateFields_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	err := repo.UpdateFields(ctx, uuid.New(), map[string]string{"first_name": "Maria"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRepo_UpdateFields_EmptyIsNoop(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	if err := repo.UpdateFields(ctx, uuid.New(), nil); err != nil {
		t.Errorf("empty update should be a no-op, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// SetStatus tests
// ---------------------------------------------------------------------------

func TestRepo_SetStatus(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	seeded := testhelper.SeedProfile(t, pool)

	if err := repo.SetStatus(ctx, seeded.ID, domain.ProfileStatusCompleted); err != nil {
		t.Fatalf("SetStatus: unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if got.Status != domain.ProfileStatusCompleted {
		t.Errorf("Status mismatch: got %s, want %s", got.Status, domain.ProfileStatusCompleted)
	}
}

func TestRepo_SetStatus_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	err := repo.SetStatus(ctx, uuid.New(), domain.ProfileStatusCompleted)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

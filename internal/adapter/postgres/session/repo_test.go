package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carevine/onboarding-backend/internal/adapter/postgres/session"
	"github.com/carevine/onboarding-backend/internal/adapter/postgres/testhelper"
	"github.com/carevine/onboarding-backend/internal/domain"
)

// newRepo sets up a test DB and returns a ready Repo + pool.
func newRepo(t *testing.T) (*session.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return session.New(pool), pool
}

func buildSession(profileID uuid.UUID) *domain.Session {
	return &domain.Session{
		ID:        uuid.New(),
		ProfileID: profileID,
		Status:    domain.SessionStatusActive,
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// ---------------------------------------------------------------------------
// Create tests
// ---------------------------------------------------------------------------

func TestRepo_Create_HappyPath(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)

	input := buildSession(profile.ID)
	got, err := repo.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	if got.ID != input.ID {
		t.Errorf("ID mismatch: got %s, want %s", got.ID, input.ID)
	}
	if got.ProfileID != profile.ID {
		t.Errorf("ProfileID mismatch: got %s, want %s", got.ProfileID, profile.ID)
	}
	if got.Status != domain.SessionStatusActive {
		t.Errorf("Status mismatch: got %s, want %s", got.Status, domain.SessionStatusActive)
	}
	if got.Version != 1 {
		t.Errorf("Version mismatch: got %d, want 1", got.Version)
	}
}

func TestRepo_Create_SecondActiveRejected(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)

	if _, err := repo.Create(ctx, buildSession(profile.ID)); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	_, err := repo.Create(ctx, buildSession(profile.ID))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRepo_Create_MissingProfile(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, buildSession(uuid.New()))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestRepo_Create_ConcurrentSingleWinner races N concurrent creates for the
// same profile: exactly one must win, the rest must see ErrAlreadyExists.
func TestRepo_Create_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Create(ctx, buildSession(profile.ID))
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrAlreadyExists):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("expected exactly 1 winner, got %d", won)
	}
	if lost != n-1 {
		t.Errorf("expected %d losers, got %d", n-1, lost)
	}
}

func TestRepo_Create_NewActiveAllowedAfterComplete(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)

	first, err := repo.Create(ctx, buildSession(profile.ID))
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}
	if _, err := repo.Complete(ctx, first.ID); err != nil {
		t.Fatalf("Complete: unexpected error: %v", err)
	}

	if _, err := repo.Create(ctx, buildSession(profile.ID)); err != nil {
		t.Errorf("create after complete should succeed, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// GetActive tests
// ---------------------------------------------------------------------------

func TestRepo_GetActive(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)
	seeded := testhelper.SeedSession(t, pool, profile.ID)

	got, err := repo.GetActive(ctx, profile.ID)
	if err != nil {
		t.Fatalf("GetActive: unexpected error: %v", err)
	}
	if got.ID != seeded.ID {
		t.Errorf("ID mismatch: got %s, want %s", got.ID, seeded.ID)
	}
}

func TestRepo_GetActive_NoneActive(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)

	_, err := repo.GetActive(ctx, profile.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Complete tests
// ---------------------------------------------------------------------------

func TestRepo_Complete(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)
	seeded := testhelper.SeedSession(t, pool, profile.ID)

	got, err := repo.Complete(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("Complete: unexpected error: %v", err)
	}
	if got.Status != domain.SessionStatusCompleted {
		t.Errorf("Status mismatch: got %s, want %s", got.Status, domain.SessionStatusCompleted)
	}
	if got.Version != seeded.Version+1 {
		t.Errorf("Version mismatch: got %d, want %d", got.Version, seeded.Version+1)
	}
}

func TestRepo_Complete_AlreadyCompleted(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)
	seeded := testhelper.SeedSession(t, pool, profile.ID)

	if _, err := repo.Complete(ctx, seeded.ID); err != nil {
		t.Fatalf("Complete: unexpected error: %v", err)
	}

	_, err := repo.Complete(ctx, seeded.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second complete, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Touch tests
// ---------------------------------------------------------------------------

func TestRepo_Touch(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)
	seeded := testhelper.SeedSession(t, pool, profile.ID)

	at := time.Now().UTC().Truncate(time.Microsecond).Add(time.Minute)
	if err := repo.Touch(ctx, seeded.ID, at); err != nil {
		t.Fatalf("Touch: unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if !got.LastUpdatedAt.Equal(at) {
		t.Errorf("LastUpdatedAt mismatch: got %s, want %s", got.LastUpdatedAt, at)
	}
	if got.Version != seeded.Version+1 {
		t.Errorf("Version mismatch: got %d, want %d", got.Version, seeded.Version+1)
	}
}

// ---------------------------------------------------------------------------
// List tests
// ---------------------------------------------------------------------------

func TestRepo_List_FilterByProfile(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	profileA := testhelper.SeedProfile(t, pool)
	profileB := testhelper.SeedProfile(t, pool)
	testhelper.SeedSession(t, pool, profileA.ID)
	testhelper.SeedSession(t, pool, profileB.ID)

	got, total, err := repo.List(ctx, domain.SessionFilter{ProfileID: &profileA.ID})
	if err != nil {
		t.Fatalf("List: unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("total mismatch: got %d, want 1", total)
	}
	if len(got) != 1 || got[0].ProfileID != profileA.ID {
		t.Errorf("expected only profile A sessions, got %+v", got)
	}
}

func TestRepo_List_FilterByStatus(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	profile := testhelper.SeedProfile(t, pool)
	seeded := testhelper.SeedSession(t, pool, profile.ID)
	if _, err := repo.Complete(ctx, seeded.ID); err != nil {
		t.Fatalf("Complete: unexpected error: %v", err)
	}

	status := domain.SessionStatusCompleted
	got, _, err := repo.List(ctx, domain.SessionFilter{ProfileID: &profile.ID, Status: &status})
	if err != nil {
		t.Fatalf("List: unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Status != domain.SessionStatusCompleted {
		t.Errorf("expected one completed session, got %+v", got)
	}
}

package turn_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carevine/onboarding-backend/internal/adapter/postgres/testhelper"
	"github.com/carevine/onboarding-backend/internal/adapter/postgres/turn"
	"github.com/carevine/onboarding-backend/internal/domain"
)

// newRepo sets up a test DB and returns a ready Repo + pool.
func newRepo(t *testing.T) (*turn.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return turn.New(pool), pool
}

func buildTurn(sessionID uuid.UUID, at time.Time, n int) *domain.Turn {
	return &domain.Turn{
		ID:             uuid.New(),
		SessionID:      sessionID,
		CreatedAt:      at,
		UserMessage:    fmt.Sprintf("user message %d", n),
		AgentReply:     fmt.Sprintf("agent reply %d", n),
		RawModelOutput: fmt.Sprintf("raw output %d", n),
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
	session := testhelper.SeedSession(t, pool, profile.ID)

	input := buildTurn(session.ID, time.Now().UTC().Truncate(time.Microsecond), 1)
	input.ExtractedJSON = json.RawMessage(`{"first_name":"Maria"}`)
	input.TouchedFields = []string{"first_name"}

	got, err := repo.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	if got.ID != input.ID {
		t.Errorf("ID mismatch: got %s, want %s", got.ID, input.ID)
	}
	if got.UserMessage != input.UserMessage {
		t.Errorf("UserMessage mismatch: got %q, want %q", got.UserMessage, input.UserMessage)
	}
	if got.AgentReply != input.AgentReply {
		t.Errorf("AgentReply mismatch: got %q, want %q", got.AgentReply, input.AgentReply)
	}
	var payload map[string]string
	if err := json.Unmarshal(got.ExtractedJSON, &payload); err != nil {
		t.Fatalf("ExtractedJSON round trip: %v", err)
	}
	if payload["first_name"] != "Maria" {
		t.Errorf("ExtractedJSON mismatch: got %s", got.ExtractedJSON)
	}
	if len(got.TouchedFields) != 1 || got.TouchedFields[0] != "first_name" {
		t.Errorf("TouchedFields mismatch: got %v", got.TouchedFields)
	}
}

func TestRepo_Create_NoExtraction(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)
	session := testhelper.SeedSession(t, pool, profile.ID)

	got, err := repo.Create(ctx, buildTurn(session.ID, time.Now().UTC(), 1))
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	if len(got.ExtractedJSON) != 0 {
		t.Errorf("ExtractedJSON should be empty, got %s", got.ExtractedJSON)
	}
	if len(got.TouchedFields) != 0 {
		t.Errorf("TouchedFields should be empty, got %v", got.TouchedFields)
	}
}

func TestRepo_Create_MissingSession(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, buildTurn(uuid.New(), time.Now().UTC(), 1))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// ListBySession / LastN tests
// ---------------------------------------------------------------------------

func TestRepo_ListBySession_ChronologicalOrder(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)
	session := testhelper.SeedSession(t, pool, profile.ID)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		if _, err := repo.Create(ctx, buildTurn(session.ID, base.Add(time.Duration(i)*time.Second), i)); err != nil {
			t.Fatalf("Create: unexpected error: %v", err)
		}
	}

	got, err := repo.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListBySession: unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("turn count mismatch: got %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Errorf("turns out of order at index %d", i)
		}
	}
}

func TestRepo_ListBySession_Empty(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)
	session := testhelper.SeedSession(t, pool, profile.ID)

	got, err := repo.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListBySession: unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty log, got %d turns", len(got))
	}
}

func TestRepo_LastN_ReturnsMostRecentAscending(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)
	session := testhelper.SeedSession(t, pool, profile.ID)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		if _, err := repo.Create(ctx, buildTurn(session.ID, base.Add(time.Duration(i)*time.Second), i)); err != nil {
			t.Fatalf("Create: unexpected error: %v", err)
		}
	}

	got, err := repo.LastN(ctx, session.ID, 2)
	if err != nil {
		t.Fatalf("LastN: unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("turn count mismatch: got %d, want 2", len(got))
	}
	if got[0].UserMessage != "user message 3" || got[1].UserMessage != "user message 4" {
		t.Errorf("expected last two turns ascending, got [%q, %q]", got[0].UserMessage, got[1].UserMessage)
	}
}

func TestRepo_LastN_ZeroIsEmpty(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	profile := testhelper.SeedProfile(t, pool)
	session := testhelper.SeedSession(t, pool, profile.ID)

	got, err := repo.LastN(ctx, session.ID, 0)
	if err != nil {
		t.Fatalf("LastN: unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d turns", len(got))
	}
}

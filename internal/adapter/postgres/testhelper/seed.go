package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carevine/onboarding-backend/internal/domain"
)

// SeedProfile creates an empty IN_PROGRESS profile row.
// Returns a filled domain.Profile.
func SeedProfile(t *testing.T, pool *pgxpool.Pool) domain.Profile {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	profile := domain.Profile{
		ID:        uuid.New(),
		Status:    domain.ProfileStatusInProgress,
		Fields:    map[string]domain.FieldValue{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO profiles (id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)`,
		profile.ID, string(profile.Status), profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedProfile insert profile: %v", err)
	}

	return profile
}

// SeedSession creates an ACTIVE session for the given profile.
// Returns a filled domain.Session.
func SeedSession(t *testing.T, pool *pgxpool.Pool, profileID uuid.UUID) domain.Session {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	session := domain.Session{
		ID:            uuid.New(),
		ProfileID:     profileID,
		Status:        domain.SessionStatusActive,
		StartedAt:     now,
		LastUpdatedAt: now,
		Version:       1,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO conversation_sessions (id, profile_id, status, started_at, last_updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.ProfileID, string(session.Status), session.StartedAt, session.LastUpdatedAt, session.Version,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedSession insert session: %v", err)
	}

	return session
}

// Package session implements the conversation session repository using
// PostgreSQL. Fixed-shape queries use raw SQL constants; the filtered
// listing is built with squirrel.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/carevine/onboarding-backend/internal/adapter/postgres"
	"github.com/carevine/onboarding-backend/internal/domain"
)

// Repo provides conversation session persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new session repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const sessionColumns = `id, profile_id, status, started_at, last_updated_at, version`

const createSQL = `
INSERT INTO conversation_sessions (id, profile_id, status, started_at, last_updated_at)
VALUES ($1, $2, $3, $4, $4)
RETURNING ` + sessionColumns

const getByIDSQL = `
SELECT ` + sessionColumns + `
FROM conversation_sessions
WHERE id = $1`

const getActiveSQL = `
SELECT ` + sessionColumns + `
FROM conversation_sessions
WHERE profile_id = $1 AND status = 'ACTIVE'`

const completeSQL = `
UPDATE conversation_sessions
SET status = 'COMPLETED', last_updated_at = now(), version = version + 1
WHERE id = $1 AND status = 'ACTIVE'
RETURNING ` + sessionColumns

const touchSQL = `
UPDATE conversation_sessions
SET last_updated_at = $2, version = version + 1
WHERE id = $1`

const countByStatusSQL = `
SELECT count(*), count(*) FILTER (WHERE status = 'ACTIVE')
FROM conversation_sessions`

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a session by primary key.
// Returns domain.ErrNotFound if the session does not exist.
func (r *Repo) GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getByIDSQL, sessionID)

	session, err := scanSession(row)
	if err != nil {
		return nil, mapError(err, "session", sessionID)
	}

	return session, nil
}

// GetActive returns the current ACTIVE session for a profile.
// Returns domain.ErrNotFound if no active session exists.
func (r *Repo) GetActive(ctx context.Context, profileID uuid.UUID) (*domain.Session, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getActiveSQL, profileID)

	session, err := scanSession(row)
	if err != nil {
		return nil, mapError(err, "session", uuid.Nil)
	}

	return session, nil
}

// List returns sessions matching the filter ordered by started_at DESC,
// plus the total count before pagination.
func (r *Repo) List(ctx context.Context, filter domain.SessionFilter) ([]*domain.Session, int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	where := sq.And{}
	if filter.ProfileID != nil {
		where = append(where, sq.Eq{"profile_id": *filter.ProfileID})
	}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": string(*filter.Status)})
	}

	countQ := psql.Select("count(*)").From("conversation_sessions")
	if len(where) > 0 {
		countQ = countQ.Where(where)
	}
	query, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	var total int
	if err := querier.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	listQ := psql.Select(sessionColumns).
		From("conversation_sessions").
		OrderBy("started_at DESC")
	if len(where) > 0 {
		listQ = listQ.Where(where)
	}
	if filter.Limit > 0 {
		listQ = listQ.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		listQ = listQ.Offset(uint64(filter.Offset))
	}
	query, args, err = listQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build select: %w", err)
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, total, nil
}

// CountByStatus returns the total number of sessions and how many of
// them are currently ACTIVE.
func (r *Repo) CountByStatus(ctx context.Context) (total, active int, err error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if err := querier.QueryRow(ctx, countByStatusSQL).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("count sessions: %w", err)
	}

	return total, active, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new session and returns the persisted domain.Session.
// A partial unique index ensures only one ACTIVE session per profile;
// attempting to create a second active session results in
// domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	startedAt := session.StartedAt.UTC().Truncate(time.Microsecond)

	row := querier.QueryRow(ctx, createSQL,
		session.ID,
		session.ProfileID,
		string(session.Status),
		startedAt,
	)

	created, err := scanSession(row)
	if err != nil {
		return nil, mapError(err, "session", session.ID)
	}

	return created, nil
}

// Complete marks an ACTIVE session as COMPLETED.
// Returns domain.ErrNotFound if the session does not exist or is not ACTIVE;
// the service layer turns the already-completed case into a no-op.
func (r *Repo) Complete(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, completeSQL, sessionID)

	completed, err := scanSession(row)
	if err != nil {
		return nil, mapError(err, "session", sessionID)
	}

	return completed, nil
}

// Touch bumps last_updated_at and the version counter after a turn is
// appended.
func (r *Repo) Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	ct, err := querier.Exec(ctx, touchSQL, sessionID, at.UTC().Truncate(time.Microsecond))
	if err != nil {
		return mapError(err, "session", sessionID)
	}

	if ct.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Row scanning helpers
// ---------------------------------------------------------------------------

// scanSession scans a single session row from pgx.Row.
func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		id            uuid.UUID
		profileID     uuid.UUID
		status        string
		startedAt     time.Time
		lastUpdatedAt time.Time
		version       int
	)

	if err := row.Scan(&id, &profileID, &status, &startedAt, &lastUpdatedAt, &version); err != nil {
		return nil, err
	}

	return &domain.Session{
		ID:            id,
		ProfileID:     profileID,
		Status:        domain.SessionStatus(status),
		StartedAt:     startedAt,
		LastUpdatedAt: lastUpdatedAt,
		Version:       version,
	}, nil
}

// scanSessions scans multiple session rows from pgx.Rows.
func scanSessions(rows pgx.Rows) ([]*domain.Session, error) {
	var sessions []*domain.Session
	for rows.Next() {
		var (
			id            uuid.UUID
			profileID     uuid.UUID
			status        string
			startedAt     time.Time
			lastUpdatedAt time.Time
			version       int
		)

		if err := rows.Scan(&id, &profileID, &status, &startedAt, &lastUpdatedAt, &version); err != nil {
			return nil, err
		}

		sessions = append(sessions, &domain.Session{
			ID:            id,
			ProfileID:     profileID,
			Status:        domain.SessionStatus(status),
			StartedAt:     startedAt,
			LastUpdatedAt: lastUpdatedAt,
			Version:       version,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if sessions == nil {
		sessions = []*domain.Session{}
	}

	return sessions, nil
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

// mapError converts pgx/pgconn errors into domain errors.
func mapError(err error, entity string, id uuid.UUID) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrAlreadyExists)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}

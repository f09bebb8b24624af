// Package turn implements the conversation turn repository using
// PostgreSQL. The turn log is append-only: rows are inserted and read,
// never updated or deleted.
package turn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/carevine/onboarding-backend/internal/adapter/postgres"
	"github.com/carevine/onboarding-backend/internal/domain"
)

// Repo provides turn log persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new turn repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const turnColumns = `id, session_id, created_at, user_message, agent_reply, raw_model_output, extracted_json, touched_fields`

const createSQL = `
INSERT INTO conversation_turns (id, session_id, created_at, user_message, agent_reply, raw_model_output, extracted_json, touched_fields)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + turnColumns

const listBySessionSQL = `
SELECT ` + turnColumns + `
FROM conversation_turns
WHERE session_id = $1
ORDER BY created_at ASC, id ASC`

const lastNSQL = `
SELECT ` + turnColumns + `
FROM conversation_turns
WHERE session_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

const countSQL = `
SELECT count(*) FROM conversation_turns`

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// ListBySession returns the full turn log for a session in chronological
// order.
func (r *Repo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Turn, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listBySessionSQL, sessionID)
	if err != nil {
		return nil, mapError(err, "turn", uuid.Nil)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, fmt.Errorf("list turns for session %s: %w", sessionID, err)
	}

	return turns, nil
}

// LastN returns the most recent n turns of a session in chronological
// order.
func (r *Repo) LastN(ctx context.Context, sessionID uuid.UUID, n int) ([]*domain.Turn, error) {
	if n <= 0 {
		return []*domain.Turn{}, nil
	}
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, lastNSQL, sessionID, n)
	if err != nil {
		return nil, mapError(err, "turn", uuid.Nil)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, fmt.Errorf("last turns for session %s: %w", sessionID, err)
	}

	// The query returns newest-first; flip back to chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// Count returns the total number of turns across all sessions.
func (r *Repo) Count(ctx context.Context) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var total int
	if err := querier.QueryRow(ctx, countSQL).Scan(&total); err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}

	return total, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create appends a turn to the session's log and returns the persisted
// domain.Turn. Referencing a missing session results in
// domain.ErrNotFound.
func (r *Repo) Create(ctx context.Context, turn *domain.Turn) (*domain.Turn, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	createdAt := turn.CreatedAt.UTC().Truncate(time.Microsecond)

	var extracted []byte
	if len(turn.ExtractedJSON) > 0 {
		extracted = turn.ExtractedJSON
	}

	row := querier.QueryRow(ctx, createSQL,
		turn.ID,
		turn.SessionID,
		createdAt,
		turn.UserMessage,
		turn.AgentReply,
		turn.RawModelOutput,
		extracted,
		turn.TouchedFields,
	)

	created, err := scanTurn(row)
	if err != nil {
		return nil, mapError(err, "turn", turn.ID)
	}

	return created, nil
}

// ---------------------------------------------------------------------------
// Row scanning helpers
// ---------------------------------------------------------------------------

// scanTurn scans a single turn row from pgx.Row.
func scanTurn(row pgx.Row) (*domain.Turn, error) {
	var (
		id             uuid.UUID
		sessionID      uuid.UUID
		createdAt      time.Time
		userMessage    string
		agentReply     string
		rawModelOutput string
		extractedJSON  []byte
		touchedFields  []string
	)

	if err := row.Scan(&id, &sessionID, &createdAt, &userMessage, &agentReply, &rawModelOutput, &extractedJSON, &touchedFields); err != nil {
		return nil, err
	}

	return &domain.Turn{
		ID:             id,
		SessionID:      sessionID,
		CreatedAt:      createdAt,
		UserMessage:    userMessage,
		AgentReply:     agentReply,
		RawModelOutput: rawModelOutput,
		ExtractedJSON:  extractedJSON,
		TouchedFields:  touchedFields,
	}, nil
}

// scanTurns scans multiple turn rows from pgx.Rows.
func scanTurns(rows pgx.Rows) ([]*domain.Turn, error) {
	var turns []*domain.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if turns == nil {
		turns = []*domain.Turn{}
	}

	return turns, nil
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

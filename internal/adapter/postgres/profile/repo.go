// Package profile implements the caregiver profile repository using
// PostgreSQL. Field columns are driven by the domain field schema, so
// queries are built dynamically with squirrel rather than SQL constants.
package profile

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
	"github.com/carevine/onboarding-backend/internal/extract"
)

// Repo provides profile persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new profile repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// fieldColumns returns the schema's field column names in schema order.
func fieldColumns() []string {
	descs := domain.Schema()
	cols := make([]string, 0, len(descs))
	for _, d := range descs {
		cols = append(cols, d.Name)
	}
	return cols
}

func selectColumns() []string {
	cols := []string{"id", "status"}
	cols = append(cols, fieldColumns()...)
	return append(cols, "created_at", "updated_at")
}

// Create inserts a new empty profile with status IN_PROGRESS.
// A duplicate id results in domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	query, args, err := psql.Insert("profiles").
		Columns("id", "status", "created_at", "updated_at").
		Values(id, string(domain.ProfileStatusInProgress), now, now).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	if _, err := querier.Exec(ctx, query, args...); err != nil {
		return nil, mapError(err, "profile", id)
	}

	return &domain.Profile{
		ID:        id,
		Status:    domain.ProfileStatusInProgress,
		Fields:    map[string]domain.FieldValue{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetByID returns a profile by primary key.
// Returns domain.ErrNotFound if the profile does not exist.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	query, args, err := psql.Select(selectColumns()...).
		From("profiles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	row := querier.QueryRow(ctx, query, args...)

	p, err := scanProfile(row)
	if err != nil {
		return nil, mapError(err, "profile", id)
	}
	return p, nil
}

// UpdateFields applies the flattened storage form of a delta: only the
// given columns are written, everything else is left untouched. The map
// keys must be schema field names.
func (r *Repo) UpdateFields(ctx context.Context, id uuid.UUID, columns map[string]string) error {
	if len(columns) == 0 {
		return nil
	}
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	update := psql.Update("profiles").Set("updated_at", time.Now().UTC())
	for col, val := range columns {
		if !domain.IsSchemaField(col) {
			return fmt.Errorf("profile %s: %w", id, domain.NewValidationError(col, "unknown field column"))
		}
		update = update.Set(col, val)
	}

	query, args, err := update.Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	ct, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, "profile", id)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SetStatus updates the profile lifecycle status.
func (r *Repo) SetStatus(ctx context.Context, id uuid.UUID, status domain.ProfileStatus) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	query, args, err := psql.Update("profiles").
		Set("status", string(status)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	ct, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, "profile", id)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CountByStatus returns the total number of profiles and how many of
// them are completed.
func (r *Repo) CountByStatus(ctx context.Context) (total, completed int, err error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	query, args, err := psql.Select(
		"count(*)",
		"count(*) FILTER (WHERE status = 'COMPLETED')",
	).From("profiles").ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("build count: %w", err)
	}

	if err := querier.QueryRow(ctx, query, args...).Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("count profiles: %w", err)
	}
	return total, completed, nil
}

// scanProfile scans one profile row: fixed columns, then one nullable
// text column per schema field, decoded through the storage codec.
func scanProfile(row interface{ Scan(...any) error }) (*domain.Profile, error) {
	var (
		id        uuid.UUID
		status    string
		createdAt time.Time
		updatedAt time.Time
	)

	cols := fieldColumns()
	values := make([]*string, len(cols))
	dests := make([]any, 0, len(cols)+4)
	dests = append(dests, &id, &status)
	for i := range values {
		dests = append(dests, &values[i])
	}
	dests = append(dests, &createdAt, &updatedAt)

	if err := row.Scan(dests...); err != nil {
		return nil, err
	}

	stored := make(map[string]*string, len(cols))
	for i, col := range cols {
		stored[col] = values[i]
	}

	return &domain.Profile{
		ID:        id,
		Status:    domain.ProfileStatus(status),
		Fields:    extract.FromStorageForm(stored),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
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

// Package conversation implements the conversation store business
// logic: session lifecycle, the append-only turn log, profile delta
// application, and read projections for the CLI and REST surfaces.
package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carevine/onboarding-backend/internal/domain"
)

// defaultHistoryWindow bounds model context when no window is configured.
const defaultHistoryWindow = 20

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type profileRepo interface {
	Create(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	UpdateFields(ctx context.Context, id uuid.UUID, columns map[string]string) error
	SetStatus(ctx context.Context, id uuid.UUID, status domain.ProfileStatus) error
	CountByStatus(ctx context.Context) (total, completed int, err error)
}

type sessionRepo interface {
	Create(ctx context.Context, session *domain.Session) (*domain.Session, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	GetActive(ctx context.Context, profileID uuid.UUID) (*domain.Session, error)
	Complete(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	List(ctx context.Context, filter domain.SessionFilter) ([]*domain.Session, int, error)
	CountByStatus(ctx context.Context) (total, active int, err error)
}

type turnRepo interface {
	Create(ctx context.Context, turn *domain.Turn) (*domain.Turn, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Turn, error)
	LastN(ctx context.Context, sessionID uuid.UUID, n int) ([]*domain.Turn, error)
	Count(ctx context.Context) (int, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Config tunes the conversation store.
type Config struct {
	// HistoryWindow is the number of recent turns sent as model context.
	HistoryWindow int
}

// Service implements the conversation store.
type Service struct {
	profiles      profileRepo
	sessions      sessionRepo
	turns         turnRepo
	tx            txManager
	clock         clock
	log           *slog.Logger
	historyWindow int
}

// NewService creates a new conversation service.
func NewService(
	log *slog.Logger,
	profiles profileRepo,
	sessions sessionRepo,
	turns turnRepo,
	tx txManager,
	cfg Config,
) *Service {
	window := cfg.HistoryWindow
	if window <= 0 {
		window = defaultHistoryWindow
	}

	return &Service{
		profiles:      profiles,
		sessions:      sessions,
		turns:         turns,
		tx:            tx,
		clock:         realClock{},
		log:           log.With("service", "conversation"),
		historyWindow: window,
	}
}

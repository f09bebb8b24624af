package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carevine/onboarding-backend/internal/domain"
)

// Hand-written mocks in the moq style: one XxxFunc field per method,
// call counting behind a mutex, panic on an unexpected call.

type profileRepoMock struct {
	mu            sync.Mutex
	CreateFunc    func(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetByIDFunc   func(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	UpdateFieldsFunc func(ctx context.Context, id uuid.UUID, columns map[string]string) error
	SetStatusFunc func(ctx context.Context, id uuid.UUID, status domain.ProfileStatus) error
	CountByStatusFunc func(ctx context.Context) (int, int, error)

	createCalls       int
	updateFieldsCalls int
	setStatusCalls    int
}

func (m *profileRepoMock) Create(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.CreateFunc == nil {
		panic("profileRepoMock.Create: unexpected call")
	}
	return m.CreateFunc(ctx, id)
}

func (m *profileRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	if m.GetByIDFunc == nil {
		panic("profileRepoMock.GetByID: unexpected call")
	}
	return m.GetByIDFunc(ctx, id)
}

func (m *profileRepoMock) UpdateFields(ctx context.Context, id uuid.UUID, columns map[string]string) error {
	m.mu.Lock()
	m.updateFieldsCalls++
	m.mu.Unlock()
	if m.UpdateFieldsFunc == nil {
		panic("profileRepoMock.UpdateFields: unexpected call")
	}
	return m.UpdateFieldsFunc(ctx, id, columns)
}

func (m *profileRepoMock) SetStatus(ctx context.Context, id uuid.UUID, status domain.ProfileStatus) error {
	m.mu.Lock()
	m.setStatusCalls++
	m.mu.Unlock()
	if m.SetStatusFunc == nil {
		panic("profileRepoMock.SetStatus: unexpected call")
	}
	return m.SetStatusFunc(ctx, id, status)
}

func (m *profileRepoMock) CountByStatus(ctx context.Context) (int, int, error) {
	if m.CountByStatusFunc == nil {
		panic("profileRepoMock.CountByStatus: unexpected call")
	}
	return m.CountByStatusFunc(ctx)
}

func (m *profileRepoMock) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

func (m *profileRepoMock) SetStatusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setStatusCalls
}

func (m *profileRepoMock) UpdateFieldsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateFieldsCalls
}

type sessionRepoMock struct {
	mu            sync.Mutex
	CreateFunc    func(ctx context.Context, session *domain.Session) (*domain.Session, error)
	GetByIDFunc   func(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	GetActiveFunc func(ctx context.Context, profileID uuid.UUID) (*domain.Session, error)
	CompleteFunc  func(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	TouchFunc     func(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	ListFunc      func(ctx context.Context, filter domain.SessionFilter) ([]*domain.Session, int, error)
	CountByStatusFunc func(ctx context.Context) (int, int, error)

	createCalls   int
	completeCalls int
	touchCalls    int
}

func (m *sessionRepoMock) Create(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.CreateFunc == nil {
		panic("sessionRepoMock.Create: unexpected call")
	}
	return m.CreateFunc(ctx, session)
}

func (m *sessionRepoMock) GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	if m.GetByIDFunc == nil {
		panic("sessionRepoMock.GetByID: unexpected call")
	}
	return m.GetByIDFunc(ctx, sessionID)
}

func (m *sessionRepoMock) GetActive(ctx context.Context, profileID uuid.UUID) (*domain.Session, error) {
	if m.GetActiveFunc == nil {
		panic("sessionRepoMock.GetActive: unexpected call")
	}
	return m.GetActiveFunc(ctx, profileID)
}

func (m *sessionRepoMock) Complete(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	m.completeCalls++
	m.mu.Unlock()
	if m.CompleteFunc == nil {
		panic("sessionRepoMock.Complete: unexpected call")
	}
	return m.CompleteFunc(ctx, sessionID)
}

func (m *sessionRepoMock) Touch(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	m.touchCalls++
	m.mu.Unlock()
	if m.TouchFunc == nil {
		panic("sessionRepoMock.Touch: unexpected call")
	}
	return m.TouchFunc(ctx, sessionID, at)
}

func (m *sessionRepoMock) List(ctx context.Context, filter domain.SessionFilter) ([]*domain.Session, int, error) {
	if m.ListFunc == nil {
		panic("sessionRepoMock.List: unexpected call")
	}
	return m.ListFunc(ctx, filter)
}

func (m *sessionRepoMock) CountByStatus(ctx context.Context) (int, int, error) {
	if m.CountByStatusFunc == nil {
		panic("sessionRepoMock.CountByStatus: unexpected call")
	}
	return m.CountByStatusFunc(ctx)
}

func (m *sessionRepoMock) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

func (m *sessionRepoMock) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

func (m *sessionRepoMock) TouchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.touchCalls
}

type turnRepoMock struct {
	mu          sync.Mutex
	CreateFunc  func(ctx context.Context, turn *domain.Turn) (*domain.Turn, error)
	ListBySessionFunc func(ctx context.Context, sessionID uuid.UUID) ([]*domain.Turn, error)
	LastNFunc   func(ctx context.Context, sessionID uuid.UUID, n int) ([]*domain.Turn, error)
	CountFunc   func(ctx context.Context) (int, error)

	createCalls int
}

func (m *turnRepoMock) Create(ctx context.Context, turn *domain.Turn) (*domain.Turn, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.CreateFunc == nil {
		panic("turnRepoMock.Create: unexpected call")
	}
	return m.CreateFunc(ctx, turn)
}

func (m *turnRepoMock) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Turn, error) {
	if m.ListBySessionFunc == nil {
		panic("turnRepoMock.ListBySession: unexpected call")
	}
	return m.ListBySessionFunc(ctx, sessionID)
}

func (m *turnRepoMock) LastN(ctx context.Context, sessionID uuid.UUID, n int) ([]*domain.Turn, error) {
	if m.LastNFunc == nil {
		panic("turnRepoMock.LastN: unexpected call")
	}
	return m.LastNFunc(ctx, sessionID, n)
}

func (m *turnRepoMock) Count(ctx context.Context) (int, error) {
	if m.CountFunc == nil {
		panic("turnRepoMock.Count: unexpected call")
	}
	return m.CountFunc(ctx)
}

func (m *turnRepoMock) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// txManagerMock runs the function inline, no real transaction.
type txManagerMock struct{}

func (txManagerMock) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fixedClock returns a constant time.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

package conversation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/carevine/onboarding-backend/internal/domain"
)

// GetSession returns a session by ID.
func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

// ListSessions returns sessions matching the filter plus the total
// count before pagination.
func (s *Service) ListSessions(ctx context.Context, filter domain.SessionFilter) ([]*domain.Session, int, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, domain.NewValidationError("status", "unknown session status")
	}
	return s.sessions.List(ctx, filter)
}

// Stats computes aggregate statistics over one session's turn log.
func (s *Service) Stats(ctx context.Context, sessionID uuid.UUID) (*domain.SessionStats, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	turns, err := s.turns.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	profile, err := s.profiles.GetByID(ctx, session.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	covered := len(profile.CoveredFields())
	total := domain.TotalFields()

	stats := &domain.SessionStats{
		SessionID:            sessionID,
		TurnCount:            len(turns),
		FieldsExtracted:      firstSeenFields(turns),
		FieldsCovered:        covered,
		TotalFields:          total,
		CompletionPercentage: int(math.Round(100 * float64(covered) / float64(total))),
		Duration:             session.LastUpdatedAt.Sub(session.StartedAt),
		AvgTurnLatency:       avgTurnLatency(turns),
	}

	return stats, nil
}

// Analytics aggregates across all profiles, sessions and turns.
func (s *Service) Analytics(ctx context.Context) (*domain.Analytics, error) {
	totalProfiles, completedProfiles, err := s.profiles.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count profiles: %w", err)
	}

	totalSessions, activeSessions, err := s.sessions.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	totalTurns, err := s.turns.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count turns: %w", err)
	}

	var avgTurns float64
	if totalSessions > 0 {
		avgTurns = float64(totalTurns) / float64(totalSessions)
	}

	return &domain.Analytics{
		TotalProfiles:      totalProfiles,
		CompletedProfiles:  completedProfiles,
		TotalSessions:      totalSessions,
		ActiveSessions:     activeSessions,
		TotalTurns:         totalTurns,
		AvgTurnsPerSession: avgTurns,
	}, nil
}

// firstSeenFields returns distinct touched fields ordered by first
// appearance across the turn log.
func firstSeenFields(turns []*domain.Turn) []string {
	seen := map[string]bool{}
	fields := []string{}
	for _, t := range turns {
		for _, name := range t.TouchedFields {
			if seen[name] {
				continue
			}
			seen[name] = true
			fields = append(fields, name)
		}
	}
	return fields
}

// avgTurnLatency averages the gaps between consecutive turns. With
// fewer than two turns there is no gap to measure.
func avgTurnLatency(turns []*domain.Turn) time.Duration {
	if len(turns) < 2 {
		return 0
	}
	var sum time.Duration
	for i := 1; i < len(turns); i++ {
		sum += turns[i].CreatedAt.Sub(turns[i-1].CreatedAt)
	}
	return sum / time.Duration(len(turns)-1)
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carevine/onboarding-backend/internal/domain"
)

// GetOrCreateActiveSession returns the profile's ACTIVE session,
// creating the profile row and a fresh session as needed. Safe under
// concurrent callers: the partial unique index picks a single winner
// and losers re-fetch it.
func (s *Service) GetOrCreateActiveSession(ctx context.Context, profileID uuid.UUID) (*domain.Session, error) {
	if err := s.ensureProfile(ctx, profileID); err != nil {
		return nil, err
	}

	existing, err := s.sessions.GetActive(ctx, profileID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check active session: %w", err)
	}

	session := &domain.Session{
		ID:        uuid.New(),
		ProfileID: profileID,
		Status:    domain.SessionStatusActive,
		StartedAt: s.clock.Now(),
	}

	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		// Race: another request created the session between check and create.
		if errors.Is(err, domain.ErrAlreadyExists) {
			winner, getErr := s.sessions.GetActive(ctx, profileID)
			if getErr != nil {
				return nil, fmt.Errorf("get active after race: %w", getErr)
			}
			s.log.InfoContext(ctx, "create race lost, returning winner",
				slog.String("profile_id", profileID.String()),
				slog.String("session_id", winner.ID.String()),
			)
			return winner, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.InfoContext(ctx, "session started",
		slog.String("profile_id", profileID.String()),
		slog.String("session_id", created.ID.String()),
	)

	return created, nil
}

// ensureProfile lazily creates the profile row on the first turn of an
// onboarding attempt.
func (s *Service) ensureProfile(ctx context.Context, profileID uuid.UUID) error {
	_, err := s.profiles.GetByID(ctx, profileID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get profile: %w", err)
	}

	if _, err := s.profiles.Create(ctx, profileID); err != nil {
		// Concurrent first turns may both try to create; losing is fine.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create profile: %w", err)
	}

	s.log.InfoContext(ctx, "profile created",
		slog.String("profile_id", profileID.String()),
	)
	return nil
}

// EndSession completes a session. Ending an already-completed session
// is a no-op returning the session as-is. When every required schema
// field is covered, the profile is marked COMPLETED too.
func (s *Service) EndSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Status == domain.SessionStatusCompleted {
		return session, nil
	}

	var completed *domain.Session
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		completed, txErr = s.sessions.Complete(txCtx, sessionID)
		if txErr != nil {
			return fmt.Errorf("complete session: %w", txErr)
		}

		profile, txErr := s.profiles.GetByID(txCtx, session.ProfileID)
		if txErr != nil {
			return fmt.Errorf("get profile: %w", txErr)
		}
		if profile.Status != domain.ProfileStatusCompleted && profile.RequiredComplete() {
			if txErr := s.profiles.SetStatus(txCtx, profile.ID, domain.ProfileStatusCompleted); txErr != nil {
				return fmt.Errorf("complete profile: %w", txErr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "session ended",
		slog.String("session_id", sessionID.String()),
		slog.String("profile_id", session.ProfileID.String()),
	)

	return completed, nil
}

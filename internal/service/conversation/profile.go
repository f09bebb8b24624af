package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carevine/onboarding-backend/internal/domain"
	"github.com/carevine/onboarding-backend/internal/extract"
)

// GetProfile returns a profile by ID.
func (s *Service) GetProfile(ctx context.Context, profileID uuid.UUID) (*domain.Profile, error) {
	return s.profiles.GetByID(ctx, profileID)
}

// ApplyDelta merges an extraction delta into the profile. Only the
// delta's columns are written; untouched fields keep their values. An
// empty delta reads and returns the profile unchanged.
func (s *Service) ApplyDelta(ctx context.Context, profileID uuid.UUID, delta domain.Delta) (*domain.Profile, error) {
	if delta.Empty() {
		return s.profiles.GetByID(ctx, profileID)
	}

	var merged *domain.Profile
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		profile, txErr := s.profiles.GetByID(txCtx, profileID)
		if txErr != nil {
			return fmt.Errorf("get profile: %w", txErr)
		}

		columns := extract.ToStorageForm(delta.Fields)
		if len(columns) == 0 {
			merged = profile
			return nil
		}

		if txErr := s.profiles.UpdateFields(txCtx, profileID, columns); txErr != nil {
			return fmt.Errorf("update fields: %w", txErr)
		}

		profile.Fields = extract.Merge(profile.Fields, delta.Fields)
		merged = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.DebugContext(ctx, "delta applied",
		slog.String("profile_id", profileID.String()),
		slog.Int("fields", len(delta.Fields)),
	)

	return merged, nil
}

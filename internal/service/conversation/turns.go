package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/carevine/onboarding-backend/internal/domain"
)

// AppendTurnInput carries one completed exchange for the turn log.
type AppendTurnInput struct {
	SessionID      uuid.UUID
	UserMessage    string
	AgentReply     string
	RawModelOutput string
	ExtractedJSON  json.RawMessage
	TouchedFields  []string
}

// Validate checks the append input.
func (in AppendTurnInput) Validate() error {
	if in.SessionID == uuid.Nil {
		return domain.NewValidationError("session_id", "must not be empty")
	}
	if in.UserMessage == "" {
		return domain.NewValidationError("user_message", "must not be empty")
	}
	return nil
}

// AppendTurn appends a turn to the session's log and bumps the
// session's last_updated_at and version inside one transaction.
func (s *Service) AppendTurn(ctx context.Context, input AppendTurnInput) (*domain.Turn, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	turn := &domain.Turn{
		ID:             uuid.New(),
		SessionID:      input.SessionID,
		CreatedAt:      now,
		UserMessage:    input.UserMessage,
		AgentReply:     input.AgentReply,
		RawModelOutput: input.RawModelOutput,
		ExtractedJSON:  input.ExtractedJSON,
		TouchedFields:  input.TouchedFields,
	}

	var created *domain.Turn
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		created, txErr = s.turns.Create(txCtx, turn)
		if txErr != nil {
			return fmt.Errorf("create turn: %w", txErr)
		}
		if txErr := s.sessions.Touch(txCtx, input.SessionID, now); txErr != nil {
			return fmt.Errorf("touch session: %w", txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// BoundedHistory returns the session's most recent turns expanded into
// chat messages, oldest first. maxTurns <= 0 falls back to the
// configured history window.
func (s *Service) BoundedHistory(ctx context.Context, sessionID uuid.UUID, maxTurns int) ([]domain.ChatMessage, error) {
	if maxTurns <= 0 {
		maxTurns = s.historyWindow
	}

	turns, err := s.turns.LastN(ctx, sessionID, maxTurns)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	history := make([]domain.ChatMessage, 0, len(turns)*2)
	for _, t := range turns {
		history = append(history, domain.ChatMessage{
			Role:    domain.ChatRoleUser,
			Content: t.UserMessage,
		})
		if t.AgentReply != "" {
			history = append(history, domain.ChatMessage{
				Role:    domain.ChatRoleAssistant,
				Content: t.AgentReply,
			})
		}
	}

	return history, nil
}

// ListTurns returns the full turn log of a session, oldest first.
func (s *Service) ListTurns(ctx context.Context, sessionID uuid.UUID) ([]*domain.Turn, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s.turns.ListBySession(ctx, sessionID)
}

// Package turn implements the turn executor: one user message in, an
// ordered stream of reply fragments, extraction results, and a
// persisted turn record out.
package turn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carevine/onboarding-backend/internal/domain"
	"github.com/carevine/onboarding-backend/internal/service/conversation"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type conversationStore interface {
	GetOrCreateActiveSession(ctx context.Context, profileID uuid.UUID) (*domain.Session, error)
	GetProfile(ctx context.Context, profileID uuid.UUID) (*domain.Profile, error)
	BoundedHistory(ctx context.Context, sessionID uuid.UUID, maxTurns int) ([]domain.ChatMessage, error)
	ApplyDelta(ctx context.Context, profileID uuid.UUID, delta domain.Delta) (*domain.Profile, error)
	AppendTurn(ctx context.Context, input conversation.AppendTurnInput) (*domain.Turn, error)
}

type replyGenerator interface {
	Generate(ctx context.Context, req domain.GenerateRequest, emit func(string) error) (*domain.GenerateResult, error)
}

type payloadExtractor interface {
	Extract(raw []byte) (domain.Delta, error)
}

// ---------------------------------------------------------------------------
// Executor
// ---------------------------------------------------------------------------

// Executor runs one conversation turn end to end.
type Executor struct {
	store     conversationStore
	generator replyGenerator
	extractor payloadExtractor
	log       *slog.Logger
}

// NewExecutor creates a turn executor.
func NewExecutor(log *slog.Logger, store conversationStore, generator replyGenerator, extractor payloadExtractor) *Executor {
	return &Executor{
		store:     store,
		generator: generator,
		extractor: extractor,
		log:       log.With("service", "turn"),
	}
}

// Execute runs one turn for the profile and returns its event stream.
// The channel is closed when the turn finishes, fails, or the context
// is cancelled. Cancellation mid-stream abandons the turn: nothing is
// written.
func (e *Executor) Execute(ctx context.Context, profileID uuid.UUID, userMessage string) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		e.run(ctx, profileID, userMessage, events)
	}()
	return events
}

func (e *Executor) run(ctx context.Context, profileID uuid.UUID, userMessage string, events chan<- Event) {
	log := e.log.With(slog.String("profile_id", profileID.String()))

	if strings.TrimSpace(userMessage) == "" {
		e.send(ctx, events, EventError{Err: domain.NewValidationError("message", "must not be empty")})
		return
	}

	// Load context: session, profile state, bounded history. Any store
	// fault here aborts the turn before anything is written.
	log.DebugContext(ctx, "turn.loading_context")
	session, err := e.store.GetOrCreateActiveSession(ctx, profileID)
	if err != nil {
		e.send(ctx, events, EventError{Err: fmt.Errorf("load session: %w", err)})
		return
	}
	profile, err := e.store.GetProfile(ctx, profileID)
	if err != nil {
		e.send(ctx, events, EventError{Err: fmt.Errorf("load profile: %w", err)})
		return
	}
	history, err := e.store.BoundedHistory(ctx, session.ID, 0)
	if err != nil {
		e.send(ctx, events, EventError{Err: fmt.Errorf("load history: %w", err)})
		return
	}

	// Generate: stream the reply, forwarding fragments as they arrive.
	log.DebugContext(ctx, "turn.generating", slog.String("session_id", session.ID.String()))
	req := domain.GenerateRequest{
		System:      buildSystemPrompt(profile),
		History:     history,
		UserMessage: userMessage,
	}
	result, err := e.generator.Generate(ctx, req, func(fragment string) error {
		if !e.send(ctx, events, EventContent{Fragment: fragment}) {
			return ctx.Err()
		}
		return nil
	})
	if ctx.Err() != nil {
		// Caller went away: abandon the turn, write nothing.
		log.Info("turn.abandoned", slog.String("session_id", session.ID.String()))
		return
	}
	if err != nil {
		e.send(ctx, events, EventError{Err: fmt.Errorf("generate reply: %w", err)})
		return
	}

	// Extract: a rejected payload means no extraction this turn, never
	// a failed turn.
	log.DebugContext(ctx, "turn.extracting")
	var delta domain.Delta
	if len(result.ExtractedJSON) > 0 {
		delta, err = e.extractor.Extract(result.ExtractedJSON)
		if err != nil {
			log.WarnContext(ctx, "turn.extract_rejected", slog.Any("error", err))
			delta = domain.Delta{}
		}
	}

	// Persist: the delta merge and the turn append fail independently.
	// A lost write is logged and the turn carries on.
	log.DebugContext(ctx, "turn.persisting")
	merged := profile
	applied := false
	if !delta.Empty() {
		merged, err = e.store.ApplyDelta(ctx, profileID, delta)
		if err != nil {
			log.ErrorContext(ctx, "turn.delta_apply_failed", slog.Any("error", err))
			merged = profile
		} else {
			applied = true
		}
	}
	if applied {
		if !e.send(ctx, events, EventExtraction{Delta: delta, Touched: delta.Touched}) {
			return
		}
	}

	turnRecord, err := e.store.AppendTurn(ctx, conversation.AppendTurnInput{
		SessionID:      session.ID,
		UserMessage:    userMessage,
		AgentReply:     result.ReplyText,
		RawModelOutput: result.RawOutput,
		ExtractedJSON:  result.ExtractedJSON,
		TouchedFields:  delta.Touched,
	})
	if err != nil {
		log.ErrorContext(ctx, "turn.append_failed", slog.Any("error", err))
		turnRecord = nil
	}

	log.InfoContext(ctx, "turn.done",
		slog.String("session_id", session.ID.String()),
		slog.Int("touched", len(delta.Touched)),
		slog.Bool("required_complete", merged.RequiredComplete()),
	)
	e.send(ctx, events, EventDone{
		Turn:             turnRecord,
		RequiredComplete: merged.RequiredComplete(),
	})
}

// send delivers one event unless the context is gone. Returns false on
// cancellation.
func (e *Executor) send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// buildSystemPrompt frames the onboarding conversation and tells the
// model which fields are still missing.
func buildSystemPrompt(profile *domain.Profile) string {
	covered := map[string]bool{}
	for _, name := range profile.CoveredFields() {
		covered[name] = true
	}

	var missing, missingRequired []string
	for _, d := range domain.Schema() {
		if covered[d.Name] {
			continue
		}
		line := fmt.Sprintf("- %s: %s", d.Name, d.Prompt)
		if d.Required {
			missingRequired = append(missingRequired, line)
		} else {
			missing = append(missing, line)
		}
	}

	var b strings.Builder
	b.WriteString(`You are a warm, professional onboarding assistant helping a caregiver build their job profile through natural conversation.

Keep replies short and conversational. Ask about one or two things at a time. Never interrogate; follow the caregiver's lead.

Whenever the caregiver provides profile information, call the update_profile tool with exactly the fields they gave. Do not invent values, and do not pass placeholders like "n/a" or "unknown".`)

	if len(missingRequired) > 0 {
		b.WriteString("\n\nStill needed (required):\n")
		b.WriteString(strings.Join(missingRequired, "\n"))
	}
	if len(missing) > 0 {
		b.WriteString("\n\nNice to have:\n")
		b.WriteString(strings.Join(missing, "\n"))
	}
	if len(missingRequired) == 0 {
		b.WriteString("\n\nAll required fields are covered. Offer to wrap up or fill in optional details.")
	}

	return b.String()
}

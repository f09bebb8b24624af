package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carevine/onboarding-backend/internal/domain"
	"github.com/carevine/onboarding-backend/internal/service/turn"
)

type turnExecutor interface {
	Execute(ctx context.Context, profileID uuid.UUID, userMessage string) <-chan turn.Event
}

type conversationService interface {
	GetProfile(ctx context.Context, profileID uuid.UUID) (*domain.Profile, error)
	Stats(ctx context.Context, sessionID uuid.UUID) (*domain.SessionStats, error)
	EndSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
}

// ConversationHandler serves the onboarding conversation endpoints.
type ConversationHandler struct {
	executor      turnExecutor
	conversations conversationService
	log           *slog.Logger
}

// NewConversationHandler creates a ConversationHandler.
func NewConversationHandler(executor turnExecutor, conversations conversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{
		executor:      executor,
		conversations: conversations,
		log:           logger.With("handler", "conversation"),
	}
}

type turnRequest struct {
	Message string `json:"message"`
}

// Turns runs one conversation turn and streams its events over SSE.
// POST /v1/profiles/{id}/turns
func (h *ConversationHandler) Turns(w http.ResponseWriter, r *http.Request) {
	profileID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.log.ErrorContext(r.Context(), "response writer does not support streaming")
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The request context is cancelled when the client disconnects,
	// which makes the executor abandon the turn without persisting.
	for ev := range h.executor.Execute(r.Context(), profileID, req.Message) {
		name, payload := encodeEvent(ev)
		if err := writeSSE(w, name, payload); err != nil {
			h.log.WarnContext(r.Context(), "sse write failed", slog.String("error", err.Error()))
			return
		}
		flusher.Flush()
	}
}

// Profile returns the profile projection with completion stats.
// GET /v1/profiles/{id}
func (h *ConversationHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profileID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	profile, err := h.conversations.GetProfile(r.Context(), profileID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// SessionStats returns aggregate statistics for one session.
// GET /v1/sessions/{id}/stats
func (h *ConversationHandler) SessionStats(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	stats, err := h.conversations.Stats(r.Context(), sessionID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

// EndSession completes a session. Ending an already-completed session
// is a no-op and returns the session unchanged.
// POST /v1/sessions/{id}/end
func (h *ConversationHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	session, err := h.conversations.EndSession(r.Context(), sessionID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *ConversationHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	default:
		h.log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// ----------------------------------------------------------------------------
// SSE encoding
// ----------------------------------------------------------------------------

func encodeEvent(ev turn.Event) (string, any) {
	switch e := ev.(type) {
	case turn.EventContent:
		return "content", map[string]string{"text": e.Fragment}
	case turn.EventExtraction:
		fields := make(map[string]any, len(e.Delta.Fields))
		for name, v := range e.Delta.Fields {
			fields[name] = fieldValueJSON(v)
		}
		return "extraction", map[string]any{
			"fields":  fields,
			"touched": e.Touched,
		}
	case turn.EventError:
		return "error", map[string]string{"error": e.Err.Error()}
	case turn.EventDone:
		payload := map[string]any{"required_complete": e.RequiredComplete}
		if e.Turn != nil {
			payload["turn_id"] = e.Turn.ID
			payload["session_id"] = e.Turn.SessionID
		}
		return "done", payload
	}
	return "error", map[string]string{"error": "unknown event"}
}

func writeSSE(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + name + "\ndata: " + string(data) + "\n\n")); err != nil {
		return err
	}
	return nil
}

// ----------------------------------------------------------------------------
// Response projections
// ----------------------------------------------------------------------------

type completionResponse struct {
	Covered    int `json:"covered"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

type profileResponse struct {
	ID               uuid.UUID          `json:"id"`
	Status           string             `json:"status"`
	Fields           map[string]any     `json:"fields"`
	CoveredFields    []string           `json:"covered_fields"`
	RequiredComplete bool               `json:"required_complete"`
	Completion       completionResponse `json:"completion"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func toProfileResponse(p *domain.Profile) profileResponse {
	fields := make(map[string]any, len(p.Fields))
	for name, v := range p.Fields {
		fields[name] = fieldValueJSON(v)
	}

	covered := p.CoveredFields()
	total := domain.TotalFields()
	percentage := 0
	if total > 0 {
		percentage = len(covered) * 100 / total
	}

	return profileResponse{
		ID:               p.ID,
		Status:           p.Status.String(),
		Fields:           fields,
		CoveredFields:    covered,
		RequiredComplete: p.RequiredComplete(),
		Completion: completionResponse{
			Covered:    len(covered),
			Total:      total,
			Percentage: percentage,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type sessionResponse struct {
	ID            uuid.UUID `json:"id"`
	ProfileID     uuid.UUID `json:"profile_id"`
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		ProfileID:     s.ProfileID,
		Status:        s.Status.String(),
		StartedAt:     s.StartedAt,
		LastUpdatedAt: s.LastUpdatedAt,
	}
}

type statsResponse struct {
	SessionID            uuid.UUID `json:"session_id"`
	TurnCount            int       `json:"turn_count"`
	FieldsExtracted      []string  `json:"fields_extracted"`
	FieldsCovered        int       `json:"fields_covered"`
	TotalFields          int       `json:"total_fields"`
	CompletionPercentage int       `json:"completion_percentage"`
	DurationSeconds      float64   `json:"duration_seconds"`
	AvgTurnLatencySecs   float64   `json:"avg_turn_latency_seconds"`
}

func toStatsResponse(s *domain.SessionStats) statsResponse {
	return statsResponse{
		SessionID:            s.SessionID,
		TurnCount:            s.TurnCount,
		FieldsExtracted:      s.FieldsExtracted,
		FieldsCovered:        s.FieldsCovered,
		TotalFields:          s.TotalFields,
		CompletionPercentage: s.CompletionPercentage,
		DurationSeconds:      s.Duration.Seconds(),
		AvgTurnLatencySecs:   s.AvgTurnLatency.Seconds(),
	}
}

// fieldValueJSON renders a FieldValue as its natural JSON shape.
func fieldValueJSON(v domain.FieldValue) any {
	switch v.Kind {
	case domain.FieldKindString:
		return v.Text
	case domain.FieldKindList:
		return v.List
	case domain.FieldKindNumberMap:
		return v.Map
	}
	return nil
}

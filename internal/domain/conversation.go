package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a conversation session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

func (s SessionStatus) String() string { return string(s) }

func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusActive, SessionStatusCompleted:
		return true
	}
	return false
}

// Session is one conversational thread tied to a profile. At most one
// session per profile is ACTIVE at any time; the storage layer enforces
// this with a partial unique index, not timing.
type Session struct {
	ID            uuid.UUID
	ProfileID     uuid.UUID
	Status        SessionStatus
	StartedAt     time.Time
	LastUpdatedAt time.Time
	Version       int
}

// Turn is one user-utterance/agent-reply exchange within a session.
// Turns are append-only and ordered by CreatedAt ascending.
type Turn struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	CreatedAt      time.Time
	UserMessage    string
	AgentReply     string
	RawModelOutput string
	// ExtractedJSON is the raw structured payload captured this turn,
	// kept for auditability. Nil when the turn extracted nothing.
	ExtractedJSON json.RawMessage
	TouchedFields []string
}

// ChatRole identifies the author of a chat message sent as model context.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of the bounded history sent to the model.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// SessionStats are aggregate statistics over one session's turn log.
type SessionStats struct {
	SessionID uuid.UUID
	TurnCount int
	// FieldsExtracted lists distinct touched fields ordered by first
	// appearance across the turn log.
	FieldsExtracted      []string
	FieldsCovered        int
	TotalFields          int
	CompletionPercentage int
	Duration             time.Duration
	AvgTurnLatency       time.Duration
}

// SessionFilter narrows session listings (CLI and REST projections).
type SessionFilter struct {
	ProfileID *uuid.UUID
	Status    *SessionStatus
	Limit     int
	Offset    int
}

// Analytics are aggregates across all sessions in the store.
type Analytics struct {
	TotalProfiles      int
	CompletedProfiles  int
	TotalSessions      int
	ActiveSessions     int
	TotalTurns         int
	AvgTurnsPerSession float64
}

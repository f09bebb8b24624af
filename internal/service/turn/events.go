package turn

import (
	"github.com/carevine/onboarding-backend/internal/domain"
)

// Event is one item of the ordered stream produced by Execute.
type Event interface {
	event()
}

// EventContent carries one streamed fragment of the agent reply.
type EventContent struct {
	Fragment string
}

// EventExtraction reports fields merged into the profile this turn.
// Emitted only after the delta is durably applied.
type EventExtraction struct {
	Delta   domain.Delta
	Touched []string
}

// EventError terminates the stream after an unrecoverable fault. At
// most one is emitted, and nothing has been written when it is.
type EventError struct {
	Err error
}

// EventDone closes a successful turn. RequiredComplete reports whether
// every required schema field is now covered; the caller decides
// whether to end the session.
type EventDone struct {
	Turn             *domain.Turn
	RequiredComplete bool
}

func (EventContent) event()    {}
func (EventExtraction) event() {}
func (EventError) event()      {}
func (EventDone) event()       {}

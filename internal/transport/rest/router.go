package rest

import (
	"log/slog"
	"net/http"

	"github.com/carevine/onboarding-backend/internal/config"
	"github.com/carevine/onboarding-backend/internal/transport/middleware"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Health       *HealthHandler
	Conversation *ConversationHandler
	RateLimiter  *middleware.RateLimiter
}

// NewRouter assembles the HTTP routing table and wraps it with the
// shared middleware chain.
func NewRouter(cfg config.Config, logger *slog.Logger, deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", deps.Health.Health)
	mux.HandleFunc("GET /ready", deps.Health.Ready)
	mux.HandleFunc("GET /live", deps.Health.Live)

	mux.HandleFunc("POST /v1/profiles/{id}/turns", deps.Conversation.Turns)
	mux.HandleFunc("GET /v1/profiles/{id}", deps.Conversation.Profile)
	mux.HandleFunc("GET /v1/sessions/{id}/stats", deps.Conversation.SessionStats)
	mux.HandleFunc("POST /v1/sessions/{id}/end", deps.Conversation.EndSession)

	mws := []middleware.Middleware{
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
	}
	if cfg.RateLimit.Enabled && deps.RateLimiter != nil {
		mws = append(mws, deps.RateLimiter.Limit(cfg.RateLimit.RequestsPerMinute))
	}

	return middleware.Chain(mws...)(mux)
}

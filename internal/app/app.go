package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql (goose)
	"github.com/pressly/goose/v3"

	"github.com/carevine/onboarding-backend/db"
	"github.com/carevine/onboarding-backend/internal/adapter/anthropic"
	"github.com/carevine/onboarding-backend/internal/adapter/postgres"
	profilerepo "github.com/carevine/onboarding-backend/internal/adapter/postgres/profile"
	sessionrepo "github.com/carevine/onboarding-backend/internal/adapter/postgres/session"
	turnrepo "github.com/carevine/onboarding-backend/internal/adapter/postgres/turn"
	"github.com/carevine/onboarding-backend/internal/config"
	"github.com/carevine/onboarding-backend/internal/extract"
	"github.com/carevine/onboarding-backend/internal/service/conversation"
	turnsvc "github.com/carevine/onboarding-backend/internal/service/turn"
	"github.com/carevine/onboarding-backend/internal/transport/middleware"
	"github.com/carevine/onboarding-backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, initializes
// the logger, connects to the database (applying migrations when enabled),
// wires the services, and serves HTTP until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	if cfg.Database.AutoMigrate {
		if err := runMigrations(ctx, cfg.Database.DSN, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	profiles := profilerepo.New(pool)
	sessions := sessionrepo.New(pool)
	turns := turnrepo.New(pool)
	txManager := postgres.NewTxManager(pool)

	store := conversation.NewService(logger, profiles, sessions, turns, txManager, conversation.Config{
		HistoryWindow: cfg.Conversation.HistoryWindow,
	})

	extractor, err := extract.New(logger)
	if err != nil {
		return fmt.Errorf("create extractor: %w", err)
	}

	generator := anthropic.New(anthropic.Config{
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		MaxTokens:      cfg.LLM.MaxTokens,
		RequestTimeout: cfg.LLM.RequestTimeout,
	}, logger)

	executor := turnsvc.NewExecutor(logger, store, generator, extractor)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(time.Minute)
		defer limiter.Stop()
	}

	handler := rest.NewRouter(*cfg, logger, rest.RouterDeps{
		Health:       rest.NewHealthHandler(pool, BuildVersion()),
		Conversation: rest.NewConversationHandler(executor, store, logger),
		RateLimiter:  limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// runMigrations applies the embedded goose migrations. Goose requires a
// *sql.DB, so this opens a short-lived database/sql connection separate
// from the pgx pool.
func runMigrations(ctx context.Context, dsn string, logger *slog.Logger) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer sqlDB.Close()

	migrations, err := fs.Sub(db.Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations sub fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	if len(results) > 0 {
		logger.Info("migrations applied", slog.Int("count", len(results)))
	}
	return nil
}

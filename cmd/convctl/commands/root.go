// Package commands implements the convctl subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/carevine/onboarding-backend/internal/adapter/postgres"
	profilerepo "github.com/carevine/onboarding-backend/internal/adapter/postgres/profile"
	sessionrepo "github.com/carevine/onboarding-backend/internal/adapter/postgres/session"
	turnrepo "github.com/carevine/onboarding-backend/internal/adapter/postgres/turn"
	"github.com/carevine/onboarding-backend/internal/config"
	"github.com/carevine/onboarding-backend/internal/service/conversation"
)

var rootCmd = &cobra.Command{
	Use:           "convctl",
	Short:         "Inspect onboarding conversation sessions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// withStore loads configuration, connects to the database, and hands a
// conversation store to fn. The pool is closed when fn returns.
func withStore(fn func(ctx context.Context, store *conversation.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Subcommands print to stdout; keep log noise on stderr and quiet.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	store := conversation.NewService(
		logger,
		profilerepo.New(pool),
		sessionrepo.New(pool),
		turnrepo.New(pool),
		postgres.NewTxManager(pool),
		conversation.Config{HistoryWindow: cfg.Conversation.HistoryWindow},
	)

	return fn(ctx, store)
}

func parseSessionArg(args []string) (uuid.UUID, error) {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id %q", args[0])
	}
	return id, nil
}

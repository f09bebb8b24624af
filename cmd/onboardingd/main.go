// Command onboardingd runs the caregiver onboarding HTTP server.
//
// Configuration comes from CONFIG_PATH (YAML) plus environment overrides;
// DATABASE_DSN and LLM_API_KEY are required.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/carevine/onboarding-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Printf("application error: %v", err)
		os.Exit(1)
	}
}

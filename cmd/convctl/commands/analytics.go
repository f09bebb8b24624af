package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carevine/onboarding-backend/internal/service/conversation"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print aggregate statistics across all sessions",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withStore(func(ctx context.Context, store *conversation.Service) error {
			a, err := store.Analytics(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Profiles:           %d (%d completed)\n", a.TotalProfiles, a.CompletedProfiles)
			fmt.Printf("Sessions:           %d (%d active)\n", a.TotalSessions, a.ActiveSessions)
			fmt.Printf("Turns:              %d\n", a.TotalTurns)
			fmt.Printf("Avg turns/session:  %.1f\n", a.AvgTurnsPerSession)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(analyticsCmd)
}

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carevine/onboarding-backend/internal/service/conversation"
)

var statsCmd = &cobra.Command{
	Use:   "stats <session-id>",
	Short: "Print aggregate statistics for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		sessionID, err := parseSessionArg(args)
		if err != nil {
			return err
		}

		return withStore(func(ctx context.Context, store *conversation.Service) error {
			stats, err := store.Stats(ctx, sessionID)
			if err != nil {
				return err
			}

			fmt.Printf("Session:          %s\n", stats.SessionID)
			fmt.Printf("Turns:            %d\n", stats.TurnCount)
			fmt.Printf("Fields extracted: %s\n", strings.Join(stats.FieldsExtracted, ", "))
			fmt.Printf("Coverage:         %d/%d (%d%%)\n",
				stats.FieldsCovered, stats.TotalFields, stats.CompletionPercentage)
			fmt.Printf("Duration:         %s\n", stats.Duration)
			fmt.Printf("Avg turn latency: %s\n", stats.AvgTurnLatency)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carevine/onboarding-backend/internal/service/conversation"
)

var endCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "Complete a session",
	Long: `Complete a session. Ending an already-completed session is a no-op.

When the session's profile has every required field covered, the profile
is marked COMPLETED as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		sessionID, err := parseSessionArg(args)
		if err != nil {
			return err
		}

		return withStore(func(ctx context.Context, store *conversation.Service) error {
			session, err := store.EndSession(ctx, sessionID)
			if err != nil {
				return err
			}

			fmt.Printf("Session %s is %s\n", session.ID, session.Status)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(endCmd)
}

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carevine/onboarding-backend/internal/service/conversation"
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's turn log",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		sessionID, err := parseSessionArg(args)
		if err != nil {
			return err
		}

		return withStore(func(ctx context.Context, store *conversation.Service) error {
			session, err := store.GetSession(ctx, sessionID)
			if err != nil {
				return err
			}
			turns, err := store.ListTurns(ctx, sessionID)
			if err != nil {
				return err
			}

			fmt.Printf("Session %s (%s) — profile %s, %d turn(s)\n\n",
				session.ID, session.Status, session.ProfileID, len(turns))

			for i, t := range turns {
				fmt.Printf("[%d] %s\n", i+1, t.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Printf("  user:  %s\n", t.UserMessage)
				fmt.Printf("  agent: %s\n", t.AgentReply)
				if len(t.TouchedFields) > 0 {
					fmt.Printf("  extracted: %s\n", strings.Join(t.TouchedFields, ", "))
				}
				fmt.Println()
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/carevine/onboarding-backend/internal/domain"
	"github.com/carevine/onboarding-backend/internal/service/conversation"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversation sessions",
	Long: `List conversation sessions, most recent first.

Examples:
  convctl list
  convctl list --status ACTIVE
  convctl list --profile 6f1c... --limit 50`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter := domain.SessionFilter{}

		if v, _ := cmd.Flags().GetString("profile"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return fmt.Errorf("invalid profile id %q", v)
			}
			filter.ProfileID = &id
		}
		if v, _ := cmd.Flags().GetString("status"); v != "" {
			status := domain.SessionStatus(strings.ToUpper(v))
			if !status.IsValid() {
				return fmt.Errorf("invalid status %q (want ACTIVE or COMPLETED)", v)
			}
			filter.Status = &status
		}
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		filter.Offset, _ = cmd.Flags().GetInt("offset")

		return withStore(func(ctx context.Context, store *conversation.Service) error {
			sessions, total, err := store.ListSessions(ctx, filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tPROFILE\tSTATUS\tSTARTED\tLAST UPDATED")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					s.ID,
					s.ProfileID,
					s.Status,
					s.StartedAt.Format("2006-01-02 15:04:05"),
					s.LastUpdatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\n%d of %d session(s)\n", len(sessions), total)
			return nil
		})
	},
}

func init() {
	listCmd.Flags().String("profile", "", "filter by profile id")
	listCmd.Flags().String("status", "", "filter by status (ACTIVE or COMPLETED)")
	listCmd.Flags().Int("limit", 20, "maximum sessions to return")
	listCmd.Flags().Int("offset", 0, "number of sessions to skip")

	rootCmd.AddCommand(listCmd)
}

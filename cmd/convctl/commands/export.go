package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carevine/onboarding-backend/internal/export"
	"github.com/carevine/onboarding-backend/internal/service/conversation"
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session's turn log and stats as an XLSX workbook",
	Long: `Export a session as an XLSX workbook with Turns and Stats sheets.

Examples:
  convctl export 6f1c... --out session.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := parseSessionArg(args)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = sessionID.String() + ".xlsx"
		}

		return withStore(func(ctx context.Context, store *conversation.Service) error {
			turns, err := store.ListTurns(ctx, sessionID)
			if err != nil {
				return err
			}
			stats, err := store.Stats(ctx, sessionID)
			if err != nil {
				return err
			}

			data, err := export.SessionWorkbook(turns, stats)
			if err != nil {
				return err
			}

			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			fmt.Printf("Exported %d turn(s) to %s\n", len(turns), out)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output file path (default <session-id>.xlsx)")

	rootCmd.AddCommand(exportCmd)
}

// Command convctl inspects the onboarding conversation store.
//
// It connects directly to PostgreSQL using the same configuration as the
// server (CONFIG_PATH plus environment overrides).
//
// Usage:
//
//	convctl list [--profile id] [--status ACTIVE|COMPLETED] [--limit n]
//	convctl show <session-id>
//	convctl stats <session-id>
//	convctl export <session-id> --out <file.xlsx>
//	convctl end <session-id>
//	convctl analytics
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"fmt"
	"os"

	"github.com/carevine/onboarding-backend/cmd/convctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

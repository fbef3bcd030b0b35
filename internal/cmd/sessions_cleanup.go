package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerkeep/ledgerkeep/internal/core/session"
)

var (
	sessionsCleanupUser   string
	sessionsCleanupOlder  time.Duration
	sessionsCleanupDryRun bool
)

var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove sessions idle beyond the staleness cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := strings.TrimSpace(sessionsCleanupUser)
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		registry := session.NewRegistry(db, db.SessionCache())
		if sessionsCleanupOlder > 0 {
			registry.StaleAfter = sessionsCleanupOlder
		}

		if sessionsCleanupDryRun {
			records, err := registry.Sessions(cmd.Context(), userID)
			if err != nil {
				return err
			}
			cutoff := time.Now().UTC().Add(-registry.StaleAfter)
			stale := 0
			for _, record := range records {
				if record.LastActive.Before(cutoff) {
					stale++
				}
			}
			_, err = fmt.Printf("Would remove %d stale session(s) for %s\n", stale, userID)
			return err
		}

		removed, err := registry.CleanupStale(cmd.Context(), userID)
		if err != nil {
			return err
		}

		_, err = fmt.Printf("Removed %d stale session(s) for %s\n", removed, userID)
		return err
	},
}

func init() {
	sessionsCleanupCmd.Flags().StringVar(&sessionsCleanupUser, "user", "", "User id (required)")
	sessionsCleanupCmd.Flags().DurationVar(&sessionsCleanupOlder, "older-than", 0, "Override the staleness cutoff (default 7 days)")
	sessionsCleanupCmd.Flags().BoolVar(&sessionsCleanupDryRun, "dry-run", false, "Show what would be removed")
}

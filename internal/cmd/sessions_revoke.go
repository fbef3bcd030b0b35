package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerkeep/ledgerkeep/internal/core/session"
)

var (
	sessionsRevokeUser    string
	sessionsRevokeSession string
	sessionsRevokeAll     bool
	sessionsRevokeYes     bool
)

var sessionsRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke one or all of a user's sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := strings.TrimSpace(sessionsRevokeUser)
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		sessionID := strings.TrimSpace(sessionsRevokeSession)
		if sessionID == "" && !sessionsRevokeAll {
			return errors.New("specify --session or --all")
		}
		if sessionID != "" && sessionsRevokeAll {
			return errors.New("--session and --all are mutually exclusive")
		}
		if sessionsRevokeAll && !sessionsRevokeYes {
			return errors.New("--all requires --yes")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		registry := session.NewRegistry(db, db.SessionCache())

		if sessionsRevokeAll {
			records, err := registry.Sessions(cmd.Context(), userID)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(records))
			for _, record := range records {
				ids = append(ids, record.SessionID)
			}
			removed, err := db.DeleteSessions(cmd.Context(), userID, ids)
			if err != nil {
				return err
			}
			_, err = fmt.Printf("Revoked %d session(s) for %s\n", removed, userID)
			return err
		}

		if err := registry.Revoke(cmd.Context(), userID, sessionID); err != nil {
			return err
		}
		_, err = fmt.Printf("Revoked session %s for %s\n", sessionID, userID)
		return err
	},
}

func init() {
	sessionsRevokeCmd.Flags().StringVar(&sessionsRevokeUser, "user", "", "User id (required)")
	sessionsRevokeCmd.Flags().StringVar(&sessionsRevokeSession, "session", "", "Revoke a single session id")
	sessionsRevokeCmd.Flags().BoolVar(&sessionsRevokeAll, "all", false, "Revoke every session for the user")
	sessionsRevokeCmd.Flags().BoolVar(&sessionsRevokeYes, "yes", false, "Confirm destructive revoke")
}

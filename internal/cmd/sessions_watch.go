package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerkeep/ledgerkeep/internal/config"
	"github.com/ledgerkeep/ledgerkeep/internal/core"
	"github.com/ledgerkeep/ledgerkeep/internal/core/session"
)

var sessionsWatchUser string

// sessionsWatchCmd keeps the user's session alive from a terminal: a
// heartbeat refreshes the persisted record on the configured interval, and an
// idle watchdog signs the session out after sessions.idle_timeout with no
// input. Any line on stdin counts as activity and resets the idle clock.
// registerWatchSession opens a session the same way sign-in does: the cap is
// enforced first so the new session cannot evict itself.
func registerWatchSession(ctx context.Context, registry *session.Registry, userID string) (string, error) {
	if err := registry.EnforceLimit(ctx, userID); err != nil {
		return "", err
	}
	return registry.Register(ctx, userID, "ledgerkeep-cli")
}

var sessionsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a session alive until idle timeout or interrupt",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := strings.TrimSpace(sessionsWatchUser)
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		cfg := config.GetConfig()
		if cfg == nil {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = loaded
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		registry := session.NewRegistry(db, db.SessionCache())
		if _, err := registerWatchSession(cmd.Context(), registry, userID); err != nil {
			return err
		}

		heartbeat := session.NewHeartbeat(registry, userID, cfg.Sessions.HeartbeatInterval)
		heartbeat.Start(cmd.Context())
		defer heartbeat.Stop()

		timedOut := make(chan core.SignOutReason, 1)
		watchdog := session.NewIdleWatchdog(
			cfg.Sessions.IdleTimeout,
			cfg.Sessions.IdleWarning,
			func(remaining time.Duration) {
				fmt.Fprintf(os.Stderr, "idle: signing out in %s unless input arrives\n", remaining.Round(time.Second))
			},
			func(reason core.SignOutReason) {
				select {
				case timedOut <- reason:
				default:
				}
			},
		)
		watchdog.Start()
		defer watchdog.Stop()

		activity := make(chan struct{})
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				activity <- struct{}{}
			}
			close(activity)
		}()

		fmt.Printf("Watching session for %s (idle timeout %s, heartbeat every %s)\n",
			userID, cfg.Sessions.IdleTimeout, cfg.Sessions.HeartbeatInterval)

		for {
			select {
			case _, ok := <-activity:
				if !ok {
					// stdin closed, keep beating until timeout or interrupt
					activity = nil
					continue
				}
				watchdog.Reset()
			case reason := <-timedOut:
				fmt.Printf("Session for %s signed out (%s)\n", userID, reason)
				sessionID := db.SessionCache().SessionID()
				if sessionID != "" {
					if err := registry.Revoke(cmd.Context(), userID, sessionID); err != nil {
						return err
					}
				}
				return nil
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		}
	},
}

func init() {
	sessionsWatchCmd.Flags().StringVar(&sessionsWatchUser, "user", "", "User id (required)")
}

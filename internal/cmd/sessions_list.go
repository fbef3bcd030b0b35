package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerkeep/ledgerkeep/internal/output"
)

var (
	sessionsListUser   string
	sessionsListOutput string
	sessionsListOut    string
	sessionsListOutDir string
)

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's active sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(sessionsListOutput)
		if err != nil {
			return err
		}

		userID := strings.TrimSpace(sessionsListUser)
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		records, err := db.ListSessions(cmd.Context(), userID)
		if err != nil {
			return err
		}

		outPath := strings.TrimSpace(sessionsListOut)
		outDir := strings.TrimSpace(sessionsListOutDir)
		if outPath != "" && outDir != "" {
			return fmt.Errorf("--out and --out-dir are mutually exclusive")
		}

		if outDir != "" {
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("sessions.list.%s", outputExtension(format)))
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		list := output.SessionList{
			UserID:    userID,
			Sessions:  records,
			CurrentID: db.SessionCache().SessionID(),
		}

		rendered, err := output.NewFormatter(format).FormatSessions(list)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	sessionsListCmd.Flags().StringVar(&sessionsListUser, "user", "", "User id to list sessions for (required)")
	sessionsListCmd.Flags().StringVar(&sessionsListOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	sessionsListCmd.Flags().StringVar(&sessionsListOut, "out", "", "Write output to a file (default stdout)")
	sessionsListCmd.Flags().StringVar(&sessionsListOutDir, "out-dir", "", "Write output to a directory")
}

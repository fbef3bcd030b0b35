package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ledgerkeep/ledgerkeep/internal/config"
	errwrap "github.com/ledgerkeep/ledgerkeep/internal/errors"
	"github.com/ledgerkeep/ledgerkeep/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify the application can start successfully.",
	Run: func(cmd *cobra.Command, args []string) {
		observability.CLILogger.Info("Running health check...")

		// Check 1: Version info available
		if versionInfo.Version == "" {
			observability.CLILogger.Error("❌ FAIL: Version information missing")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		observability.CLILogger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		observability.CLILogger.Info("✅ Version information available")

		// Check 2: Configuration loaded
		if config.GetConfig() == nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration not loaded", errwrap.NewConfigInvalidError("Configuration not loaded"))
			return
		}
		observability.CLILogger.Info("✅ Configuration system ready")

		// Check 3: Store reachable
		db, err := openStore(cmd.Context())
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Store check failed", err)
			return
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup
		observability.CLILogger.Info("✅ Store reachable")

		observability.CLILogger.Info("")
		observability.CLILogger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/erp/ledgersync/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0"

var (
	serverURL  string
	timeout    time.Duration
	outputJSON bool
	logLevel   string

	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operator CLI for the production ledger",
	Long: `ledgerctl talks to a running ledger server. It pushes invoices and payments
to the accounting ledger, shows sync history and replays dead outbox entries.

The server address defaults to $LEDGER_SERVER_URL, then http://localhost:8080.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New(&logger.Config{
			Level:      logLevel,
			Format:     "console",
			Output:     "stderr",
			TimeFormat: "15:04:05",
		})
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		log = l
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Error("Command failed", zap.Error(err))
			_ = log.Sync()
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("LEDGER_SERVER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "Ledger server base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print raw JSON responses")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func newClient() *apiClient {
	return newAPIClient(serverURL, timeout)
}

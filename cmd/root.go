// Package cmd defines and implements the CLI commands for the smartcourse
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ronakdeora/smart-course/internal/config"
	"github.com/Ronakdeora/smart-course/internal/logging"
)

var cfgFile string

// configKeyType is the key for storing the loaded Config in the context.
type configKeyType string

const configKey configKeyType = "config"

// newRootCmd creates and configures the root command. Configuration is loaded
// and the logger initialized once here, before any subcommand runs.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smartcourse",
		Short: "An asynchronous RAG pipeline that generates multi-lesson courses.",
		Long: `smartcourse consumes course generation requests from a message broker,
builds a course outline and lesson content with retrieval-augmented
generation, persists the result to PostgreSQL, and publishes status
events back to the requester.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if err := logging.Init(cfg.Logging.Development); err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (configuration also read from SMARTCOURSE_* env vars)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPublishCmd())

	return cmd
}

// resolveConfig retrieves the loaded configuration placed in the command
// context by the root hook.
func resolveConfig(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(configKey).(config.Config)
	if !ok {
		return config.Config{}, errors.New("configuration not initialized")
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}

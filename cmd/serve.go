package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ronakdeora/smart-course/internal/app"
	"github.com/Ronakdeora/smart-course/internal/config"
	"github.com/Ronakdeora/smart-course/internal/logging"
)

// App is the slice of *app.App the serve command uses. It is an interface so
// tests can inject a mock application.
type App interface {
	Run(ctx context.Context) error
	Close()
}

// newApp is the application factory. It's a variable so we can replace it
// with a mock factory in our tests.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.NewApp(ctx, cfg, logging.L)
}

// newServeCmd creates and configures the 'serve' subcommand, which runs the
// generation and status consumers until interrupted.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the course generation workers",
		Long: `Connects to the message broker and consumes the generation and status
queues until the process receives SIGINT or SIGTERM. Lifecycle status
events are published for every request processed.`,

		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run workers: %w", err)
	}

	logging.L.Info("Serve command finished.")
	return nil
}

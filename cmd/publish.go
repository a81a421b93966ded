package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ronakdeora/smart-course/internal/broker"
	"github.com/Ronakdeora/smart-course/internal/course"
	"github.com/Ronakdeora/smart-course/internal/logging"
)

// newPublishCmd creates the 'publish' subcommand, a small client that enqueues
// one generation request. Useful for smoke testing a deployment.
func newPublishCmd() *cobra.Command {
	var (
		topic        string
		gradeLevel   string
		lessons      int
		sourceFilter string
		userID       string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publishes a course generation request to the broker",
		Long: `Builds a generation request with a fresh request id and publishes it
under the generation routing key. The request is then picked up by any
running 'serve' worker.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}

			req := course.GenerationRequest{
				RequestID:    uuid.NewString(),
				UserID:       userID,
				Topic:        topic,
				GradeLevel:   gradeLevel,
				NumLessons:   lessons,
				SourceFilter: sourceFilter,
			}

			client := broker.NewAMQPClient(broker.AMQPConfig{
				URL:      cfg.Broker.URL,
				Exchange: cfg.Broker.Exchange,
			}, logging.L)
			if err := client.Connect(cmd.Context()); err != nil {
				return fmt.Errorf("connect broker: %w", err)
			}
			defer func() {
				if err := client.Stop(); err != nil {
					logging.L.Warn("Failed to close broker client", zap.Error(err))
				}
			}()

			if err := client.Publish(cmd.Context(), cfg.Broker.GenerateKey, req); err != nil {
				return fmt.Errorf("publish request: %w", err)
			}

			logging.L.Info("Generation request published",
				zap.String("request_id", req.RequestID),
				zap.String("topic", req.Topic),
				zap.String("routing_key", cfg.Broker.GenerateKey),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "course topic (required)")
	cmd.Flags().StringVar(&userID, "user-id", "", "requesting user id (required)")
	cmd.Flags().StringVar(&gradeLevel, "grade-level", "", "target grade level (default applied by the worker)")
	cmd.Flags().IntVar(&lessons, "lessons", 0, "number of lessons (default applied by the worker)")
	cmd.Flags().StringVar(&sourceFilter, "source-filter", "", "restrict retrieval to sources whose filename contains this value")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

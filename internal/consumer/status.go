package consumer

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Ronakdeora/smart-course/internal/broker"
	"github.com/Ronakdeora/smart-course/internal/metrics"
	"github.com/Ronakdeora/smart-course/internal/status"
)

// Status consumes status events and renders them to the service log. It is
// the built-in observer for the status queue; external clients bind their own
// queues to the same routing key.
type Status struct {
	logger *zap.Logger
}

// NewStatus wires a status event handler.
func NewStatus(logger *zap.Logger) *Status {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Status{logger: logger}
}

// Handle renders one status event. Malformed events are logged and dropped;
// they never block the queue.
func (s *Status) Handle(_ context.Context, body []byte) broker.Disposition {
	var evt status.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		s.logger.Warn("dropping malformed status event", zap.Error(err))
		return broker.NackDrop
	}
	if err := evt.Validate(); err != nil {
		s.logger.Warn("dropping invalid status event",
			zap.String("request_id", evt.RequestID),
			zap.Error(err),
		)
		return broker.NackDrop
	}

	metrics.ObserveStatusEvent(evt.Status)

	fields := []zap.Field{
		zap.String("request_id", evt.RequestID),
		zap.String("message", evt.Message),
		zap.String("timestamp", evt.Timestamp),
	}
	switch evt.Status {
	case status.StateSuccess:
		fields = append(fields,
			zap.String("course_id", evt.CourseID),
			zap.String("course_title", evt.CourseTitle),
			zap.Int("total_lessons", evt.TotalLessons),
		)
		s.logger.Info("course ready", fields...)
	case status.StateError:
		if evt.CourseID != "" {
			fields = append(fields, zap.String("course_id", evt.CourseID))
		}
		s.logger.Error("course generation failed", fields...)
	default:
		s.logger.Info("course generation in progress", fields...)
	}
	return broker.Ack
}

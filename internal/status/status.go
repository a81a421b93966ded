// Package status defines the status events published back to requesters and
// the reporter that emits them.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Event states.
const (
	StateProcessing = "processing"
	StateSuccess    = "success"
	StateError      = "error"
)

// Event is the wire shape of one status update. Events are ephemeral: they
// exist only on the status queue and are never stored.
type Event struct {
	RequestID    string `json:"request_id"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	Timestamp    string `json:"timestamp"`
	CourseID     string `json:"course_id,omitempty"`
	CourseTitle  string `json:"course_title,omitempty"`
	TotalLessons int    `json:"total_lessons,omitempty"`
}

// Validate performs coarse validation on inbound status payloads.
func (e Event) Validate() error {
	if e.RequestID == "" {
		return errors.New("request id is required")
	}
	switch e.Status {
	case StateProcessing, StateSuccess, StateError:
	default:
		return fmt.Errorf("unknown status %q", e.Status)
	}
	return nil
}

// Publisher sends a JSON payload under a routing key. The broker client
// satisfies this interface.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Reporter publishes status events for one request lifecycle.
type Reporter struct {
	pub        Publisher
	routingKey string
	logger     *zap.Logger
	now        func() time.Time
}

// NewReporter constructs a Reporter publishing under the given routing key.
func NewReporter(pub Publisher, routingKey string, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		pub:        pub,
		routingKey: routingKey,
		logger:     logger,
		now:        time.Now,
	}
}

// Processing reports that generation for a request has started.
func (r *Reporter) Processing(ctx context.Context, requestID, topic string) error {
	return r.publish(ctx, Event{
		RequestID: requestID,
		Status:    StateProcessing,
		Message:   fmt.Sprintf("Generating course for '%s'", topic),
	})
}

// Success reports the terminal success event with the persisted course facts.
func (r *Reporter) Success(ctx context.Context, requestID, courseID, courseTitle string, totalLessons int) error {
	return r.publish(ctx, Event{
		RequestID:    requestID,
		Status:       StateSuccess,
		Message:      "Course generated successfully",
		CourseID:     courseID,
		CourseTitle:  courseTitle,
		TotalLessons: totalLessons,
	})
}

// Error reports the terminal error event. courseID carries the partially
// created course id when persistence had begun, otherwise empty.
func (r *Reporter) Error(ctx context.Context, requestID, courseID, message string) error {
	return r.publish(ctx, Event{
		RequestID: requestID,
		Status:    StateError,
		Message:   message,
		CourseID:  courseID,
	})
}

func (r *Reporter) publish(ctx context.Context, evt Event) error {
	evt.Timestamp = r.now().UTC().Format(time.RFC3339)
	if err := r.pub.Publish(ctx, r.routingKey, evt); err != nil {
		return fmt.Errorf("publish %s status: %w", evt.Status, err)
	}
	r.logger.Debug("status published",
		zap.String("request_id", evt.RequestID),
		zap.String("status", evt.Status),
	)
	return nil
}

// Package consumer contains the message handlers bound to the pipeline's
// queues: the generation worker and the status event renderer.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ronakdeora/smart-course/internal/backup"
	"github.com/Ronakdeora/smart-course/internal/broker"
	"github.com/Ronakdeora/smart-course/internal/course"
	"github.com/Ronakdeora/smart-course/internal/metrics"
	"github.com/Ronakdeora/smart-course/internal/store"
)

// Orchestrator runs the full RAG pipeline for one request.
type Orchestrator interface {
	GenerateComplete(ctx context.Context, req course.GenerationRequest) (course.Course, error)
}

// StatusReporter publishes lifecycle events for one request.
// status.Reporter satisfies it.
type StatusReporter interface {
	Processing(ctx context.Context, requestID, topic string) error
	Success(ctx context.Context, requestID, courseID, courseTitle string, totalLessons int) error
	Error(ctx context.Context, requestID, courseID, message string) error
}

// Generation consumes generation requests and drives them through the
// orchestrator, store, and backup writer, reporting status along the way.
type Generation struct {
	orchestrator Orchestrator
	store        store.Provider
	backup       backup.Writer
	reporter     StatusReporter
	logger       *zap.Logger
	now          func() time.Time
}

// NewGeneration wires a generation handler.
func NewGeneration(
	orchestrator Orchestrator,
	st store.Provider,
	bw backup.Writer,
	reporter StatusReporter,
	logger *zap.Logger,
) *Generation {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bw == nil {
		bw = backup.NoOpWriter{}
	}
	return &Generation{
		orchestrator: orchestrator,
		store:        st,
		backup:       bw,
		reporter:     reporter,
		logger:       logger,
		now:          time.Now,
	}
}

// Handle processes one generation message. Every failure path is terminal:
// the message is dropped, never requeued, and the requester learns the
// outcome from the status queue, not from redelivery.
func (g *Generation) Handle(ctx context.Context, body []byte) broker.Disposition {
	started := g.now()

	req, err := course.DecodeRequest(body)
	if err != nil {
		// The body never became a valid request, so nothing downstream ran.
		// Recover what correlation we can and report the rejection.
		requestID := course.RecoverRequestID(body)
		g.logger.Warn("rejected generation request",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		metrics.ObserveRequest(metrics.OutcomeInvalid)
		g.reportError(ctx, requestID, "", fmt.Sprintf("Invalid request: %v", err))
		return broker.NackDrop
	}

	log := g.logger.With(
		zap.String("request_id", req.RequestID),
		zap.String("topic", req.Topic),
	)
	log.Info("generation request received",
		zap.String("user_id", req.UserID),
		zap.Int("num_lessons", req.NumLessons),
	)

	if err := g.reporter.Processing(ctx, req.RequestID, req.Topic); err != nil {
		log.Error("failed to publish processing status", zap.Error(err))
		metrics.ObserveRequest(metrics.OutcomeStatus)
		g.reportError(ctx, req.RequestID, "", "Internal error: could not report progress")
		return broker.NackDrop
	}

	c, err := g.orchestrator.GenerateComplete(ctx, req)
	if err != nil {
		log.Error("course generation failed", zap.Error(err))
		metrics.ObserveRequest(metrics.OutcomeGeneration)
		g.reportError(ctx, req.RequestID, "", fmt.Sprintf("Generation failed: %v", err))
		return broker.NackDrop
	}

	courseID, err := g.store.SaveComplete(ctx, req.UserID, c)
	if err != nil {
		log.Error("course persistence failed", zap.Error(err))
		metrics.ObserveRequest(metrics.OutcomePersistence)
		// A partially created course row still carries an id the requester
		// can use to inspect the FAILED record.
		var perr *store.PersistenceError
		partialID := ""
		if errors.As(err, &perr) {
			partialID = perr.CourseID
		}
		g.reportError(ctx, req.RequestID, partialID, fmt.Sprintf("Persistence failed: %v", err))
		return broker.NackDrop
	}
	log = log.With(zap.String("course_id", courseID))

	// Backups are advisory; a failed write never fails the request.
	if path, err := g.backup.WriteCourse(ctx, c); err != nil {
		log.Warn("course backup failed", zap.Error(err))
	} else if path != "" {
		log.Info("course backup written", zap.String("path", path))
	}

	if err := g.reporter.Success(ctx, req.RequestID, courseID, c.Metadata.Title, c.Metadata.TotalLessons); err != nil {
		log.Error("failed to publish success status", zap.Error(err))
		metrics.ObserveRequest(metrics.OutcomeStatus)
		g.reportError(ctx, req.RequestID, courseID, "Course generated but status delivery failed")
		return broker.NackDrop
	}

	metrics.ObserveRequest(metrics.OutcomeCompleted)
	metrics.ObserveCourse(len(c.Lessons), g.now().Sub(started))
	log.Info("course generated",
		zap.Int("lessons", len(c.Lessons)),
		zap.Duration("took", g.now().Sub(started)),
	)
	return broker.Ack
}

// reportError is best effort: if even the error event cannot be published
// there is nothing left to do but log.
func (g *Generation) reportError(ctx context.Context, requestID, courseID, message string) {
	if err := g.reporter.Error(ctx, requestID, courseID, message); err != nil {
		g.logger.Error("failed to publish error status",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
}

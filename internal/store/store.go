// Package store defines the interface for persisting generated courses.
// By using an interface, we decouple the pipeline from a specific database
// implementation, allowing for easier testing.
package store

import (
	"context"
	"fmt"

	"github.com/Ronakdeora/smart-course/internal/course"
)

// Course lifecycle statuses. The status field, not row presence, is
// authoritative for readiness. QUEUED is written by the upstream enqueuer
// before a request reaches this service; rows created here are born
// GENERATING.
const (
	StatusQueued     = "QUEUED"
	StatusGenerating = "GENERATING"
	StatusReady      = "READY"
	StatusFailed     = "FAILED"
)

// PersistenceError reports a failed save. CourseID carries the id of the
// partially created course row when one exists, so error status events can
// reference it.
type PersistenceError struct {
	CourseID string
	Err      error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence failed: %v", e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Provider is the persistence gateway contract.
type Provider interface {
	// SaveComplete materializes the course into relational storage and
	// returns the new course id. A course is only observed READY when every
	// lesson and lesson body was written in the same transaction.
	SaveComplete(ctx context.Context, userID string, c course.Course) (string, error)

	// Close releases the underlying connection resources.
	Close()
}

// NoOpProvider is a mock store that performs no operations. It is useful for
// running the pipeline without a real database connection.
type NoOpProvider struct{}

// SaveComplete for NoOpProvider does nothing and returns a dummy id.
func (n *NoOpProvider) SaveComplete(_ context.Context, _ string, _ course.Course) (string, error) {
	return "noop-course-id", nil
}

// Close for NoOpProvider does nothing.
func (n *NoOpProvider) Close() {}

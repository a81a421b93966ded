package consumer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Ronakdeora/smart-course/internal/broker"
)

func TestStatusHandleRendersSuccessEvent(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	s := NewStatus(zap.New(core))

	body := []byte(`{
		"request_id": "r1",
		"status": "success",
		"message": "Course generated successfully",
		"timestamp": "2024-03-01T12:00:00Z",
		"course_id": "course-123",
		"course_title": "Introduction to Cells",
		"total_lessons": 2
	}`)
	require.Equal(t, broker.Ack, s.Handle(context.Background(), body))

	entries := logs.FilterMessage("course ready").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "r1", fields["request_id"])
	require.Equal(t, "Introduction to Cells", fields["course_title"])
	require.EqualValues(t, 2, fields["total_lessons"])
}

func TestStatusHandleRendersErrorEvent(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	s := NewStatus(zap.New(core))

	body := []byte(`{"request_id":"r2","status":"error","message":"Generation failed","course_id":"course-partial"}`)
	require.Equal(t, broker.Ack, s.Handle(context.Background(), body))

	entries := logs.FilterMessage("course generation failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "course-partial", entries[0].ContextMap()["course_id"])
}

func TestStatusHandleDropsMalformedBody(t *testing.T) {
	t.Parallel()

	s := NewStatus(nil)
	require.Equal(t, broker.NackDrop, s.Handle(context.Background(), []byte("{not json")))
}

func TestStatusHandleDropsUnknownState(t *testing.T) {
	t.Parallel()

	s := NewStatus(nil)
	body := []byte(`{"request_id":"r3","status":"finished","message":"?"}`)
	require.Equal(t, broker.NackDrop, s.Handle(context.Background(), body))
}

package status

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	routingKeys []string
	payloads    []any
	err         error
}

func (p *capturingPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.routingKeys = append(p.routingKeys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestReporterSuccessPayload(t *testing.T) {
	t.Parallel()

	pub := &capturingPublisher{}
	r := NewReporter(pub, "course.status", nil)
	r.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }

	require.NoError(t, r.Success(context.Background(), "r1", "c1", "The Cell", 2))
	require.Equal(t, []string{"course.status"}, pub.routingKeys)

	evt, ok := pub.payloads[0].(Event)
	require.True(t, ok)
	require.Equal(t, "r1", evt.RequestID)
	require.Equal(t, StateSuccess, evt.Status)
	require.Equal(t, "c1", evt.CourseID)
	require.Equal(t, "The Cell", evt.CourseTitle)
	require.Equal(t, 2, evt.TotalLessons)
	require.Equal(t, "2023-11-14T22:13:20Z", evt.Timestamp)
}

func TestReporterPublishFailure(t *testing.T) {
	t.Parallel()

	pub := &capturingPublisher{err: fmt.Errorf("channel closed")}
	r := NewReporter(pub, "course.status", nil)

	require.Error(t, r.Processing(context.Background(), "r1", "Cell"))
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Event{RequestID: "r1", Status: StateProcessing}.Validate())
	require.Error(t, Event{Status: StateProcessing}.Validate())
	require.Error(t, Event{RequestID: "r1", Status: "done"}.Validate())
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Reset collectors for testing purposes.
	requestsTotal = nil
	lessonsGeneratedTotal = nil
	generationDurationSeconds = nil
	statusEventsTotal = nil

	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if requestsTotal == nil || lessonsGeneratedTotal == nil ||
		generationDurationSeconds == nil || statusEventsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveRequest(OutcomeCompleted)
	if val := testutil.ToFloat64(requestsTotal.WithLabelValues(OutcomeCompleted)); val != 1 {
		t.Errorf("Expected completed requests to be 1, got %f", val)
	}

	ObserveCourse(4, 30*time.Second)
	if val := testutil.ToFloat64(lessonsGeneratedTotal); val != 4 {
		t.Errorf("Expected lessons generated to be 4, got %f", val)
	}

	ObserveStatusEvent("SUCCESS")
	if val := testutil.ToFloat64(statusEventsTotal.WithLabelValues("SUCCESS")); val != 1 {
		t.Errorf("Expected SUCCESS status events to be 1, got %f", val)
	}
}

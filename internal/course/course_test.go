package course

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRequestAppliesDefaults(t *testing.T) {
	t.Parallel()

	body := []byte(`{"request_id":"r1","user_id":"u1","topic":"Cell Biology"}`)
	req, err := DecodeRequest(body)
	require.NoError(t, err)

	require.Equal(t, "r1", req.RequestID)
	require.Equal(t, DefaultGradeLevel, req.GradeLevel)
	require.Equal(t, DefaultLessonCount, req.NumLessons)
}

func TestDecodeRequestMissingTopic(t *testing.T) {
	t.Parallel()

	_, err := DecodeRequest([]byte(`{"request_id":"r1","user_id":"u1"}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "topic", verr.Field)
}

func TestDecodeRequestMissingUserID(t *testing.T) {
	t.Parallel()

	_, err := DecodeRequest([]byte(`{"request_id":"r1","topic":"Cells"}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "user_id", verr.Field)
}

func TestDecodeRequestInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := DecodeRequest([]byte(`not json`))
	require.Error(t, err)
}

func TestRecoverRequestID(t *testing.T) {
	t.Parallel()

	require.Equal(t, "r9", RecoverRequestID([]byte(`{"request_id":"r9"}`)))
	require.Equal(t, UnknownRequestID, RecoverRequestID([]byte(`{"topic":"Cells"}`)))
	require.Equal(t, UnknownRequestID, RecoverRequestID([]byte(`garbage`)))
}

// Package course defines the domain types moving through the generation
// pipeline: the inbound request, the generated outline, and the assembled
// course aggregate handed to persistence.
package course

import (
	"encoding/json"
	"fmt"
	"time"
)

// Defaults applied to inbound requests.
const (
	DefaultGradeLevel  = "Grade 8"
	DefaultLessonCount = 4

	// UnknownRequestID is the sentinel echoed in status events when the
	// request id could not be recovered from a malformed message body.
	UnknownRequestID = "unknown"
)

// GenerationRequest is the inbound unit of work delivered on the generation
// queue. RequestID is a caller-supplied correlation token echoed in every
// status event.
type GenerationRequest struct {
	RequestID    string `json:"request_id"`
	UserID       string `json:"user_id"`
	Topic        string `json:"topic"`
	GradeLevel   string `json:"grade_level,omitempty"`
	NumLessons   int    `json:"num_lessons,omitempty"`
	SourceFilter string `json:"source_filter,omitempty"`
}

// ValidationError reports a required request field that is missing or invalid.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %q", e.Field)
}

// DecodeRequest parses a message body into a GenerationRequest, applies
// defaults, and validates required fields. A request that fails validation is
// never processed further.
func DecodeRequest(body []byte) (GenerationRequest, error) {
	var req GenerationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GenerationRequest{}, fmt.Errorf("decode request: %w", err)
	}
	req.applyDefaults()
	if err := req.Validate(); err != nil {
		return GenerationRequest{}, err
	}
	return req, nil
}

func (r *GenerationRequest) applyDefaults() {
	if r.RequestID == "" {
		r.RequestID = UnknownRequestID
	}
	if r.GradeLevel == "" {
		r.GradeLevel = DefaultGradeLevel
	}
	if r.NumLessons <= 0 {
		r.NumLessons = DefaultLessonCount
	}
}

// Validate enforces the required request fields.
func (r GenerationRequest) Validate() error {
	if r.Topic == "" {
		return &ValidationError{Field: "topic"}
	}
	if r.UserID == "" {
		return &ValidationError{Field: "user_id"}
	}
	return nil
}

// RecoverRequestID makes a best-effort attempt to pull the request id out of a
// body that failed to decode or validate, so error status events can still be
// correlated.
func RecoverRequestID(body []byte) string {
	var partial map[string]any
	if err := json.Unmarshal(body, &partial); err != nil {
		return UnknownRequestID
	}
	if id, ok := partial["request_id"].(string); ok && id != "" {
		return id
	}
	return UnknownRequestID
}

// LessonSpec is one entry of a course outline.
type LessonSpec struct {
	LessonNumber       int      `json:"lesson_number"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	KeyConcepts        []string `json:"key_concepts"`
	LearningObjectives []string `json:"learning_objectives"`
}

// CourseOutline is the structured table of contents produced by the first
// generation call.
type CourseOutline struct {
	CourseTitle string       `json:"course_title"`
	Lessons     []LessonSpec `json:"lessons"`
}

// Lesson pairs an outline entry with its generated long-form content and the
// citations used to produce it.
type Lesson struct {
	Spec        LessonSpec `json:"lesson_info"`
	Content     string     `json:"content"`
	Sources     []string   `json:"sources"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Metadata describes a generated course.
type Metadata struct {
	Title        string    `json:"title"`
	Topic        string    `json:"topic"`
	GradeLevel   string    `json:"grade_level"`
	SourceFilter string    `json:"source_filter,omitempty"`
	TotalLessons int       `json:"total_lessons"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Course is the aggregate handed to persistence: metadata, the outline, the
// ordered lessons, and the deduplicated union of all citations.
type Course struct {
	Metadata Metadata      `json:"metadata"`
	Outline  CourseOutline `json:"outline"`
	Lessons  []Lesson      `json:"lessons"`
	Sources  []string      `json:"all_sources"`
}

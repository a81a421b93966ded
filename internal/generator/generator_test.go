package generator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ronakdeora/smart-course/internal/course"
	"github.com/Ronakdeora/smart-course/internal/rag"
)

const twoLessonOutline = `{
  "course_title": "The Cell",
  "lessons": [
    {"lesson_number": 2, "title": "Organelles", "description": "Inside the cell", "key_concepts": ["nucleus"], "learning_objectives": ["name organelles"]},
    {"lesson_number": 1, "title": "Cell Basics", "description": "What cells are", "key_concepts": ["cell theory"], "learning_objectives": ["define a cell"]}
  ]
}`

type stubRetriever struct {
	snippets []rag.Snippet
	err      error
	calls    int
	queries  []string
}

func (s *stubRetriever) Search(_ context.Context, query, _ string, _ int) ([]rag.Snippet, error) {
	s.calls++
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.snippets, nil
}

type stubGenerator struct {
	outline    string
	lessonText string
	lessonErr  error
	structured []bool
	temps      []float64
	calls      int
}

func (s *stubGenerator) Complete(_ context.Context, _ string, structured bool, temperature float64) (string, error) {
	s.calls++
	s.structured = append(s.structured, structured)
	s.temps = append(s.temps, temperature)
	if structured {
		return s.outline, nil
	}
	if s.lessonErr != nil {
		return "", s.lessonErr
	}
	return s.lessonText, nil
}

func validRequest() course.GenerationRequest {
	return course.GenerationRequest{
		RequestID:  "r1",
		UserID:     "u1",
		Topic:      "Cell",
		GradeLevel: "Grade 8",
		NumLessons: 2,
	}
}

func TestGenerateCompleteOrdersLessons(t *testing.T) {
	t.Parallel()

	retriever := &stubRetriever{snippets: []rag.Snippet{
		{Source: "bio.md", Section: "1.1", Text: "cells"},
	}}
	gen := &stubGenerator{outline: twoLessonOutline, lessonText: "## Introduction\ntext"}

	svc := New(retriever, gen, nil)
	c, err := svc.GenerateComplete(context.Background(), validRequest())
	require.NoError(t, err)

	require.Equal(t, "The Cell", c.Metadata.Title)
	require.Equal(t, 2, c.Metadata.TotalLessons)
	require.Len(t, c.Lessons, 2)
	require.Equal(t, 1, c.Lessons[0].Spec.LessonNumber)
	require.Equal(t, 2, c.Lessons[1].Spec.LessonNumber)
	require.Equal(t, []string{"bio.md [1.1]"}, c.Sources)

	// One structured outline call plus one freeform call per lesson.
	require.Equal(t, []bool{true, false, false}, gen.structured)
	require.InDeltaSlice(t, []float64{outlineTemperature, lessonTemperature, lessonTemperature}, gen.temps, 0.0001)
}

func TestGenerateCompleteLessonQueryIncludesConcepts(t *testing.T) {
	t.Parallel()

	retriever := &stubRetriever{}
	gen := &stubGenerator{outline: twoLessonOutline, lessonText: "text"}

	svc := New(retriever, gen, nil)
	_, err := svc.GenerateComplete(context.Background(), validRequest())
	require.NoError(t, err)

	// Queries: outline topic first, then one per lesson in lesson order.
	require.Len(t, retriever.queries, 3)
	require.Equal(t, "Cell", retriever.queries[0])
	require.True(t, strings.Contains(retriever.queries[1], "Cell Basics"))
	require.True(t, strings.Contains(retriever.queries[1], "cell theory"))
}

func TestBuildOutlineRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	retriever := &stubRetriever{}
	gen := &stubGenerator{outline: "Sure! Here is an outline..."}

	svc := New(retriever, gen, nil)
	_, _, err := svc.BuildOutline(context.Background(), "Cell", "Grade 8", 2, "")

	var genErr *rag.GenerationError
	require.ErrorAs(t, err, &genErr)
}

func TestBuildOutlineRejectsEmptyLessons(t *testing.T) {
	t.Parallel()

	retriever := &stubRetriever{}
	gen := &stubGenerator{outline: `{"course_title":"Empty","lessons":[]}`}

	svc := New(retriever, gen, nil)
	_, _, err := svc.BuildOutline(context.Background(), "Cell", "Grade 8", 2, "")

	var genErr *rag.GenerationError
	require.ErrorAs(t, err, &genErr)
}

func TestGenerateCompleteAbortsOnLessonFailure(t *testing.T) {
	t.Parallel()

	retriever := &stubRetriever{}
	gen := &stubGenerator{
		outline:   twoLessonOutline,
		lessonErr: &rag.GenerationError{Err: fmt.Errorf("backend down")},
	}

	svc := New(retriever, gen, nil)
	_, err := svc.GenerateComplete(context.Background(), validRequest())

	var genErr *rag.GenerationError
	require.ErrorAs(t, err, &genErr)
}

func TestGenerateCompleteWrapsRetrievalFailure(t *testing.T) {
	t.Parallel()

	retriever := &stubRetriever{err: fmt.Errorf("connection refused")}
	gen := &stubGenerator{outline: twoLessonOutline}

	svc := New(retriever, gen, nil)
	_, err := svc.GenerateComplete(context.Background(), validRequest())

	var retErr *rag.RetrievalError
	require.ErrorAs(t, err, &retErr)
	require.Zero(t, gen.calls)
}

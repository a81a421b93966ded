package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/Ronakdeora/smart-course/internal/course"
)

func sampleCourse() course.Course {
	generated := time.Unix(1700000000, 0).UTC()
	spec := course.LessonSpec{
		LessonNumber:       1,
		Title:              "Cell Basics",
		Description:        "What cells are",
		KeyConcepts:        []string{"cell theory"},
		LearningObjectives: []string{"define a cell"},
	}
	return course.Course{
		Metadata: course.Metadata{
			Title:        "The Cell",
			Topic:        "Cell",
			GradeLevel:   "Grade 8",
			TotalLessons: 1,
			GeneratedAt:  generated,
		},
		Outline: course.CourseOutline{CourseTitle: "The Cell", Lessons: []course.LessonSpec{spec}},
		Lessons: []course.Lesson{{
			Spec:        spec,
			Content:     "## Introduction\nCells are small.",
			Sources:     []string{"bio.md [1.1]"},
			GeneratedAt: generated,
		}},
		Sources: []string{"bio.md [1.1]"},
	}
}

func TestSaveCompleteCommitsAllRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider, err := NewPostgresProviderWithPool(mock, nil)
	require.NoError(t, err)

	c := sampleCourse()

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(
			pgxmock.AnyArg(), // course id
			"u1",
			"The Cell",
			"Cell",
			"Grade 8",
			1,
			"",
			pgxmock.AnyArg(), // outline json
			StatusGenerating,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lessons").
		WithArgs(
			pgxmock.AnyArg(), // lesson id
			pgxmock.AnyArg(), // course id
			1,
			"Cell Basics",
			"What cells are",
			[]string{"cell theory"},
			[]string{"define a cell"},
			[]string{"bio.md [1.1]"},
			c.Lessons[0].GeneratedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO lesson_bodies").
		WithArgs(
			pgxmock.AnyArg(), // lesson id
			c.Lessons[0].Content,
			pgxmock.AnyArg(), // structured json
			pgxmock.AnyArg(), // updated_at
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE courses SET status").
		WithArgs(StatusReady, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	courseID, err := provider.SaveComplete(context.Background(), "u1", c)
	require.NoError(t, err)
	require.NotEmpty(t, courseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCompleteLessonFailureMarksCourseFailed(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider, err := NewPostgresProviderWithPool(mock, nil)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(
			pgxmock.AnyArg(), "u1", "The Cell", "Cell", "Grade 8", 1, "",
			pgxmock.AnyArg(), StatusGenerating,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lessons").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectRollback()
	mock.ExpectExec("UPDATE courses SET status").
		WithArgs(StatusFailed, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	_, err = provider.SaveComplete(context.Background(), "u1", sampleCourse())

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	require.NotEmpty(t, perr.CourseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCompleteCourseInsertFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider, err := NewPostgresProviderWithPool(mock, nil)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(fmt.Errorf("relation does not exist"))

	_, err = provider.SaveComplete(context.Background(), "u1", sampleCourse())

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Empty(t, perr.CourseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

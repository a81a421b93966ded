// Package backup writes best-effort snapshots of generated courses alongside
// the relational store. Backups are advisory: a failed backup never fails the
// pipeline.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Ronakdeora/smart-course/internal/course"
)

// WriteError reports a failed backup write.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("backup write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Writer persists one complete course snapshot and returns where it was
// written.
type Writer interface {
	WriteCourse(ctx context.Context, c course.Course) (string, error)
}

// NoOpWriter disables backups.
type NoOpWriter struct{}

// WriteCourse for NoOpWriter does nothing.
func (NoOpWriter) WriteCourse(_ context.Context, _ course.Course) (string, error) {
	return "", nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9-_]`)

// dirName derives a filesystem/object-safe directory name from course
// metadata, e.g. "photosynthesis-grade-8".
func dirName(m course.Metadata) string {
	name := fmt.Sprintf("%s-%s", m.Topic, m.GradeLevel)
	name = unsafeChars.ReplaceAllString(name, "-")
	return strings.ToLower(name)
}

// renderJSON produces the canonical course.json payload.
func renderJSON(c course.Course) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal course: %w", err)
	}
	return data, nil
}

// renderMarkdown produces a single human-readable course.md document: title,
// metadata, a table of contents, then each lesson's content in order.
func renderMarkdown(c course.Course) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", c.Metadata.Title)
	fmt.Fprintf(&b, "**Topic:** %s\n", c.Metadata.Topic)
	fmt.Fprintf(&b, "**Grade Level:** %s\n", c.Metadata.GradeLevel)
	fmt.Fprintf(&b, "**Lessons:** %d\n", c.Metadata.TotalLessons)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", c.Metadata.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))

	b.WriteString("## Table of Contents\n\n")
	for _, l := range c.Lessons {
		fmt.Fprintf(&b, "%d. %s\n", l.Spec.LessonNumber, l.Spec.Title)
	}
	b.WriteString("\n")

	for _, l := range c.Lessons {
		b.WriteString("---\n\n")
		fmt.Fprintf(&b, "## Lesson %d: %s\n\n", l.Spec.LessonNumber, l.Spec.Title)
		b.WriteString(strings.TrimSpace(l.Content))
		b.WriteString("\n\n")
	}

	if len(c.Sources) > 0 {
		b.WriteString("---\n\n## Sources\n\n")
		for _, s := range c.Sources {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	return []byte(b.String())
}

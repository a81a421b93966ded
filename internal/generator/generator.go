// Package generator turns a validated request into a complete course through
// staged calls against the retrieval/generation backend.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ronakdeora/smart-course/internal/course"
	"github.com/Ronakdeora/smart-course/internal/rag"
)

// Retrieval sizes and sampling temperatures for the two stages. The outline
// call must be near-deterministic JSON; lesson prose gets a higher setting.
const (
	outlineMaxResults = 5
	lessonMaxResults  = 6

	outlineTemperature = 0.0
	lessonTemperature  = 0.7
)

// Service orchestrates course generation. Lessons are generated sequentially
// in lesson-number order; any stage failure aborts the whole request.
type Service struct {
	retriever rag.Retriever
	generator rag.Generator
	logger    *zap.Logger
	now       func() time.Time
}

// New constructs a Service.
func New(retriever rag.Retriever, generator rag.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
}

// BuildOutline retrieves context for the topic and asks the backend for a
// structured course outline. The backend output must parse as a CourseOutline
// or the whole request fails.
func (s *Service) BuildOutline(
	ctx context.Context,
	topic, gradeLevel string,
	lessonCount int,
	sourceFilter string,
) (course.CourseOutline, []string, error) {
	s.logger.Info("generating outline",
		zap.String("topic", topic),
		zap.Int("lessons", lessonCount),
	)

	contextText, sources, err := s.searchContext(ctx, topic, sourceFilter, outlineMaxResults)
	if err != nil {
		return course.CourseOutline{}, nil, err
	}

	prompt := outlinePrompt(topic, gradeLevel, lessonCount, sourceFilter, contextText)
	raw, err := s.generator.Complete(ctx, prompt, true, outlineTemperature)
	if err != nil {
		return course.CourseOutline{}, nil, err
	}

	var outline course.CourseOutline
	if err := json.Unmarshal([]byte(raw), &outline); err != nil {
		return course.CourseOutline{}, nil, &rag.GenerationError{
			Err: fmt.Errorf("outline is not valid JSON: %w", err),
		}
	}
	if len(outline.Lessons) == 0 {
		return course.CourseOutline{}, nil, &rag.GenerationError{
			Err: fmt.Errorf("outline contains no lessons"),
		}
	}

	s.logger.Info("outline generated", zap.Int("lessons", len(outline.Lessons)))
	return outline, sources, nil
}

// BuildLessonContent retrieves a wider context window for one lesson and asks
// the backend for its long-form content.
func (s *Service) BuildLessonContent(
	ctx context.Context,
	spec course.LessonSpec,
	gradeLevel, sourceFilter string,
) (string, []string, error) {
	s.logger.Info("generating lesson content",
		zap.Int("lesson_number", spec.LessonNumber),
		zap.String("title", spec.Title),
	)

	query := strings.TrimSpace(fmt.Sprintf("%s %s %s",
		spec.Title, spec.Description, strings.Join(spec.KeyConcepts, " ")))

	contextText, sources, err := s.searchContext(ctx, query, sourceFilter, lessonMaxResults)
	if err != nil {
		return "", nil, err
	}

	prompt := lessonPrompt(spec, gradeLevel, sourceFilter, contextText)
	content, err := s.generator.Complete(ctx, prompt, false, lessonTemperature)
	if err != nil {
		return "", nil, err
	}
	return content, sources, nil
}

// GenerateComplete builds the outline and then every lesson, aggregating
// citations across all stages. There is no partial output: an error from any
// stage aborts the operation.
func (s *Service) GenerateComplete(ctx context.Context, req course.GenerationRequest) (course.Course, error) {
	outline, outlineSources, err := s.BuildOutline(
		ctx, req.Topic, req.GradeLevel, req.NumLessons, req.SourceFilter)
	if err != nil {
		return course.Course{}, err
	}

	specs := append([]course.LessonSpec(nil), outline.Lessons...)
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].LessonNumber < specs[j].LessonNumber
	})

	allSources := make(map[string]struct{})
	for _, src := range outlineSources {
		allSources[src] = struct{}{}
	}

	lessons := make([]course.Lesson, 0, len(specs))
	for _, spec := range specs {
		content, lessonSources, err := s.BuildLessonContent(ctx, spec, req.GradeLevel, req.SourceFilter)
		if err != nil {
			return course.Course{}, err
		}
		lessons = append(lessons, course.Lesson{
			Spec:        spec,
			Content:     content,
			Sources:     lessonSources,
			GeneratedAt: s.now().UTC(),
		})
		for _, src := range lessonSources {
			allSources[src] = struct{}{}
		}
		s.logger.Info("lesson completed", zap.Int("lesson_number", spec.LessonNumber))
	}

	title := outline.CourseTitle
	if title == "" {
		title = fmt.Sprintf("%s Course", req.Topic)
	}

	sources := make([]string, 0, len(allSources))
	for src := range allSources {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	c := course.Course{
		Metadata: course.Metadata{
			Title:        title,
			Topic:        req.Topic,
			GradeLevel:   req.GradeLevel,
			SourceFilter: req.SourceFilter,
			TotalLessons: len(lessons),
			GeneratedAt:  s.now().UTC(),
		},
		Outline: outline,
		Lessons: lessons,
		Sources: sources,
	}

	s.logger.Info("course generation completed",
		zap.String("title", title),
		zap.Int("lessons", len(lessons)),
	)
	return c, nil
}

// searchContext runs one retrieval and folds the snippets into a prompt
// context block plus a deduplicated source list.
func (s *Service) searchContext(
	ctx context.Context,
	query, filter string,
	maxResults int,
) (string, []string, error) {
	snippets, err := s.retriever.Search(ctx, query, filter, maxResults)
	if err != nil {
		if _, ok := err.(*rag.RetrievalError); ok {
			return "", nil, err
		}
		return "", nil, &rag.RetrievalError{Err: err}
	}

	chunks := make([]string, 0, len(snippets))
	seen := make(map[string]struct{})
	sources := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		chunks = append(chunks, fmt.Sprintf("From %s [%s]:\n%s", sn.Source, sn.Section, sn.Text))
		label := fmt.Sprintf("%s [%s]", sn.Source, sn.Section)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		sources = append(sources, label)
	}
	return strings.Join(chunks, "\n---\n"), sources, nil
}

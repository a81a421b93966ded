package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Ronakdeora/smart-course/internal/course"
)

// txPool is the slice of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type txPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresConfig controls the connection pool for the course store.
type PostgresConfig struct {
	DSN      string
	MaxConns int32
}

// PostgresProvider persists courses into PostgreSQL. It assumes the schema:
//
//	courses(id, user_id, title, topic, grade_level, total_lessons,
//	        source_filter, outline_json, status, error_message, generated_at)
//	lessons(id, course_id, lesson_number, title, description, key_concepts,
//	        learning_objectives, sources, generated_at)
//	lesson_bodies(lesson_id UNIQUE, content_raw, content_structured, updated_at)
type PostgresProvider struct {
	pool   txPool
	logger *zap.Logger
	now    func() time.Time
}

// NewPostgresProvider creates a pooled connection and pings it to ensure it's
// alive.
func NewPostgresProvider(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*PostgresProvider, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newWithPool(pool, logger), nil
}

// NewPostgresProviderWithPool constructs a provider from an existing pool
// (primarily for testing).
func NewPostgresProviderWithPool(pool txPool, logger *zap.Logger) (*PostgresProvider, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newWithPool(pool, logger), nil
}

func newWithPool(pool txPool, logger *zap.Logger) *PostgresProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresProvider{pool: pool, logger: logger, now: time.Now}
}

// Close releases the underlying pool resources.
func (p *PostgresProvider) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

// lessonStructure is the derived structured form stored in lesson_bodies.
type lessonStructure struct {
	LessonNumber       int              `json:"lesson_number"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	KeyConcepts        []string         `json:"key_concepts"`
	LearningObjectives []string         `json:"learning_objectives"`
	Sections           []course.Section `json:"sections"`
}

// SaveComplete writes the course in two steps: the course row is created
// first with status GENERATING so a FAILED marker can outlive a failed save,
// then all lessons, bodies, and the READY flip commit in a single
// transaction. On any error after the course row exists, the row is
// best-effort flipped to FAILED with the error message and the returned
// PersistenceError carries the course id.
func (p *PostgresProvider) SaveComplete(ctx context.Context, userID string, c course.Course) (string, error) {
	courseID := uuid.NewString()

	outlineJSON, err := json.Marshal(c.Outline)
	if err != nil {
		return "", &PersistenceError{Err: fmt.Errorf("marshal outline: %w", err)}
	}

	if _, err := p.pool.Exec(ctx, `
INSERT INTO courses (
	id, user_id, title, topic, grade_level,
	total_lessons, source_filter, outline_json, status
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		courseID,
		userID,
		c.Metadata.Title,
		c.Metadata.Topic,
		c.Metadata.GradeLevel,
		c.Metadata.TotalLessons,
		c.Metadata.SourceFilter,
		outlineJSON,
		StatusGenerating,
	); err != nil {
		return "", &PersistenceError{Err: fmt.Errorf("insert course: %w", err)}
	}
	p.logger.Info("course row created", zap.String("course_id", courseID))

	if err := p.saveLessonsAndFinish(ctx, courseID, c); err != nil {
		p.markFailed(ctx, courseID, err)
		return "", &PersistenceError{CourseID: courseID, Err: err}
	}

	p.logger.Info("course saved",
		zap.String("course_id", courseID),
		zap.Int("lessons", len(c.Lessons)),
	)
	return courseID, nil
}

func (p *PostgresProvider) saveLessonsAndFinish(ctx context.Context, courseID string, c course.Course) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			p.logger.Warn("rollback failed", zap.String("course_id", courseID), zap.Error(rbErr))
		}
	}()

	for _, lesson := range c.Lessons {
		lessonID := uuid.NewString()
		if _, err := tx.Exec(ctx, `
INSERT INTO lessons (
	id, course_id, lesson_number, title, description,
	key_concepts, learning_objectives, sources, generated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			lessonID,
			courseID,
			lesson.Spec.LessonNumber,
			lesson.Spec.Title,
			lesson.Spec.Description,
			lesson.Spec.KeyConcepts,
			lesson.Spec.LearningObjectives,
			lesson.Sources,
			lesson.GeneratedAt,
		); err != nil {
			return fmt.Errorf("insert lesson %d: %w", lesson.Spec.LessonNumber, err)
		}

		structured, err := json.Marshal(lessonStructure{
			LessonNumber:       lesson.Spec.LessonNumber,
			Title:              lesson.Spec.Title,
			Description:        lesson.Spec.Description,
			KeyConcepts:        lesson.Spec.KeyConcepts,
			LearningObjectives: lesson.Spec.LearningObjectives,
			Sections:           course.SplitSections(lesson.Content),
		})
		if err != nil {
			return fmt.Errorf("marshal lesson %d structure: %w", lesson.Spec.LessonNumber, err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO lesson_bodies (lesson_id, content_raw, content_structured, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (lesson_id) DO UPDATE SET
	content_raw = EXCLUDED.content_raw,
	content_structured = EXCLUDED.content_structured,
	updated_at = EXCLUDED.updated_at`,
			lessonID,
			lesson.Content,
			structured,
			p.now().UTC(),
		); err != nil {
			return fmt.Errorf("insert lesson %d body: %w", lesson.Spec.LessonNumber, err)
		}
	}

	if _, err := tx.Exec(ctx, `
UPDATE courses SET status = $1, generated_at = $2 WHERE id = $3`,
		StatusReady,
		p.now().UTC(),
		courseID,
	); err != nil {
		return fmt.Errorf("mark course ready: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit course save: %w", err)
	}
	committed = true
	return nil
}

// markFailed is a best-effort status flip; its own failure is only logged.
func (p *PostgresProvider) markFailed(ctx context.Context, courseID string, cause error) {
	if _, err := p.pool.Exec(ctx, `
UPDATE courses SET status = $1, error_message = $2 WHERE id = $3`,
		StatusFailed,
		cause.Error(),
		courseID,
	); err != nil {
		p.logger.Error("failed to mark course FAILED",
			zap.String("course_id", courseID),
			zap.Error(err),
		)
	}
}

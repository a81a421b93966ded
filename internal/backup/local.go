package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Ronakdeora/smart-course/internal/course"
)

// LocalConfig captures the parameters for the local filesystem backup writer.
type LocalConfig struct {
	// BaseDir is the root directory where course snapshots will be stored.
	BaseDir string
}

// LocalWriter writes course snapshots to the local filesystem as a directory
// per course containing course.json and course.md.
type LocalWriter struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalWriter validates the base directory, creating it if needed, and
// verifies it is writable so the service fails fast on bad configuration.
func NewLocalWriter(cfg LocalConfig, logger *zap.Logger) (*LocalWriter, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &LocalWriter{baseDir: cfg.BaseDir, logger: logger}, nil
}

// WriteCourse writes course.json and course.md under a directory derived from
// the course topic and grade level, overwriting any previous snapshot.
func (w *LocalWriter) WriteCourse(_ context.Context, c course.Course) (string, error) {
	dir := filepath.Join(w.baseDir, dirName(c.Metadata))

	cleanBase := filepath.Clean(w.baseDir)
	cleanDir := filepath.Clean(dir)
	if !strings.HasPrefix(cleanDir, cleanBase+string(filepath.Separator)) {
		return "", &WriteError{Path: dir, Err: fmt.Errorf("path traversal detected")}
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", &WriteError{Path: dir, Err: fmt.Errorf("create course directory: %w", err)}
	}

	data, err := renderJSON(c)
	if err != nil {
		return "", &WriteError{Path: dir, Err: err}
	}
	jsonPath := filepath.Join(dir, "course.json")
	if err := os.WriteFile(jsonPath, data, 0o600); err != nil {
		return "", &WriteError{Path: jsonPath, Err: err}
	}

	mdPath := filepath.Join(dir, "course.md")
	if err := os.WriteFile(mdPath, renderMarkdown(c), 0o600); err != nil {
		return "", &WriteError{Path: mdPath, Err: err}
	}

	w.logger.Debug("course backup written", zap.String("dir", dir))
	return dir, nil
}

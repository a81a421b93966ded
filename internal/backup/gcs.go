package backup

import (
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/Ronakdeora/smart-course/internal/course"
)

// GCSConfig captures the parameters for the Cloud Storage backup writer.
type GCSConfig struct {
	Bucket string
	// Prefix is prepended to every object name, e.g. "courses".
	Prefix string
}

// GCSWriter uploads course snapshots to a Google Cloud Storage bucket.
// Authentication is handled via Application Default Credentials.
type GCSWriter struct {
	client *storage.Client
	cfg    GCSConfig
	logger *zap.Logger
}

// NewGCSWriter initializes a GCS client and verifies the bucket is reachable,
// so the service fails fast on bad configuration.
func NewGCSWriter(ctx context.Context, cfg GCSConfig, logger *zap.Logger) (*GCSWriter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close GCS client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to get GCS bucket %q attributes: %w", cfg.Bucket, err)
	}

	return &GCSWriter{client: client, cfg: cfg, logger: logger}, nil
}

// WriteCourse uploads course.json and course.md under
// <prefix>/<topic-grade>/ and returns the gs:// directory URI.
func (w *GCSWriter) WriteCourse(ctx context.Context, c course.Course) (string, error) {
	dir := path.Join(w.cfg.Prefix, dirName(c.Metadata))

	data, err := renderJSON(c)
	if err != nil {
		return "", &WriteError{Path: dir, Err: err}
	}
	if err := w.put(ctx, path.Join(dir, "course.json"), data); err != nil {
		return "", err
	}
	if err := w.put(ctx, path.Join(dir, "course.md"), renderMarkdown(c)); err != nil {
		return "", err
	}

	uri := fmt.Sprintf("gs://%s/%s", w.cfg.Bucket, dir)
	w.logger.Debug("course backup uploaded", zap.String("uri", uri))
	return uri, nil
}

func (w *GCSWriter) put(ctx context.Context, objectName string, data []byte) error {
	wc := w.client.Bucket(w.cfg.Bucket).Object(objectName).NewWriter(ctx)
	if _, err := wc.Write(data); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			w.logger.Warn("failed to close GCS writer after write failure",
				zap.String("object", objectName), zap.Error(closeErr))
		}
		return &WriteError{Path: objectName, Err: err}
	}
	// Close finalizes the upload; buffered data is not committed until then.
	if err := wc.Close(); err != nil {
		return &WriteError{Path: objectName, Err: err}
	}
	return nil
}

// Close releases the underlying GCS client.
func (w *GCSWriter) Close() error {
	return w.client.Close()
}

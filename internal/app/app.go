// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Ronakdeora/smart-course/internal/backup"
	"github.com/Ronakdeora/smart-course/internal/broker"
	"github.com/Ronakdeora/smart-course/internal/config"
	"github.com/Ronakdeora/smart-course/internal/consumer"
	"github.com/Ronakdeora/smart-course/internal/generator"
	"github.com/Ronakdeora/smart-course/internal/metrics"
	"github.com/Ronakdeora/smart-course/internal/rag"
	"github.com/Ronakdeora/smart-course/internal/status"
	"github.com/Ronakdeora/smart-course/internal/store"
)

const (
	opsShutdownTimeout = 5 * time.Second

	// consumerDrainTimeout bounds how long shutdown waits for the consumer
	// goroutines to finish their in-flight delivery.
	consumerDrainTimeout = 5 * time.Second
)

// App holds all the shared, long-lived services for the pipeline: the store,
// the backup writer, the two broker clients, and the bound message handlers.
// It is initialized once at startup and torn down by Close.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	store  store.Provider
	backup backup.Writer

	// One connection per consumer so a blocked generation channel never
	// starves status delivery.
	genClient    *broker.AMQPClient
	statusClient *broker.AMQPClient

	generation *consumer.Generation
	statusView *consumer.Status

	ops *http.Server
}

// NewApp builds the service graph from configuration. It is the central
// point for service initialization and fails fast if any critical service
// cannot be constructed.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	st, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	bw, err := newBackup(ctx, cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	backend, err := rag.NewClient(rag.ClientConfig{
		APIKey:        cfg.Backend.APIKey,
		BaseURL:       cfg.Backend.BaseURL,
		Model:         cfg.Backend.Model,
		VectorStoreID: cfg.Backend.VectorStoreID,
		Timeout:       cfg.BackendTimeout(),
		MaxRetries:    cfg.Backend.MaxRetries,
	}, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("initialize backend client: %w", err)
	}

	brokerCfg := broker.AMQPConfig{URL: cfg.Broker.URL, Exchange: cfg.Broker.Exchange}
	genClient := broker.NewAMQPClient(brokerCfg, logger.Named("broker.generation"))
	statusClient := broker.NewAMQPClient(brokerCfg, logger.Named("broker.status"))

	reporter := status.NewReporter(genClient, cfg.Broker.StatusKey, logger)
	orchestrator := generator.New(backend, backend, logger)

	a := &App{
		cfg:          cfg,
		logger:       logger,
		store:        st,
		backup:       bw,
		genClient:    genClient,
		statusClient: statusClient,
		generation:   consumer.NewGeneration(orchestrator, st, bw, reporter, logger),
		statusView:   consumer.NewStatus(logger),
	}
	a.ops = &http.Server{
		Addr:              cfg.Ops.Addr,
		Handler:           a.opsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Provider, error) {
	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to PostgreSQL")
		p, err := store.NewPostgresProvider(ctx, store.PostgresConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize store: %w", err)
		}
		return p, nil
	case "noop":
		logger.Info("using no-op store; courses will be discarded")
		return &store.NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}
}

func newBackup(ctx context.Context, cfg config.Config, logger *zap.Logger) (backup.Writer, error) {
	switch cfg.Backup.Provider {
	case "local":
		logger.Info("using local backup writer", zap.String("dir", cfg.Backup.Dir))
		w, err := backup.NewLocalWriter(backup.LocalConfig{BaseDir: cfg.Backup.Dir}, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize backup writer: %w", err)
		}
		return w, nil
	case "gcs":
		logger.Info("using GCS backup writer", zap.String("bucket", cfg.Backup.Bucket))
		w, err := backup.NewGCSWriter(ctx, backup.GCSConfig{
			Bucket: cfg.Backup.Bucket,
			Prefix: cfg.Backup.Prefix,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize backup writer: %w", err)
		}
		return w, nil
	case "noop":
		logger.Info("backups disabled")
		return backup.NoOpWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown backup provider: %s", cfg.Backup.Provider)
	}
}

func (a *App) opsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// Run connects both broker clients and blocks consuming the generation and
// status queues until ctx is cancelled or a consumer fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.genClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect generation client: %w", err)
	}
	if err := a.statusClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect status client: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	var consumers sync.WaitGroup

	go func() {
		a.logger.Info("ops server listening", zap.String("addr", a.ops.Addr))
		if err := a.ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()
	consumers.Add(1)
	go func() {
		defer consumers.Done()
		errCh <- a.genClient.Consume(ctx, a.cfg.Broker.GenerationQueue, a.cfg.Broker.GenerateKey, a.generation.Handle)
	}()
	consumers.Add(1)
	go func() {
		defer consumers.Done()
		errCh <- a.statusClient.Consume(ctx, a.cfg.Broker.StatusQueue, a.cfg.Broker.StatusKey, a.statusView.Handle)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		// One consumer failing takes the whole service down so the
		// supervisor can restart it with fresh connections.
	}
	cancel()

	// Join the consumer goroutines before the caller tears down the broker
	// connections, so an in-flight handler can still ack its delivery. A
	// consumer that does not stop within the drain window is abandoned.
	if !waitBounded(&consumers, consumerDrainTimeout) {
		a.logger.Warn("consumers did not stop within drain window; abandoning",
			zap.Duration("timeout", consumerDrainTimeout))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), opsShutdownTimeout)
	defer shutdownCancel()
	if err := a.ops.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("ops server shutdown", zap.Error(err))
	}
	return runErr
}

// waitBounded waits for wg up to timeout. It reports whether the wait
// completed before the deadline.
func waitBounded(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close gracefully shuts down all services in the App container. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if err := a.genClient.Stop(); err != nil {
		a.logger.Warn("error closing generation broker client", zap.Error(err))
	}
	if err := a.statusClient.Stop(); err != nil {
		a.logger.Warn("error closing status broker client", zap.Error(err))
	}
	a.store.Close()
	if closer, ok := a.backup.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("error closing backup writer", zap.Error(err))
		}
	}
	// Flush buffered log entries before the process exits. Best effort;
	// logging itself may be failing.
	_ = a.logger.Sync()
}

// Package app assembles the agent from configuration: storage backend,
// source reader, dedup guard, uploader, login client and pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lia-lab/lia-sync/internal/aggregation"
	"github.com/lia-lab/lia-sync/internal/auth"
	coreagg "github.com/lia-lab/lia-sync/internal/core/aggregation"
	"github.com/lia-lab/lia-sync/internal/core/cipher"
	"github.com/lia-lab/lia-sync/internal/core/config"
	"github.com/lia-lab/lia-sync/internal/core/storage"
	"github.com/lia-lab/lia-sync/internal/core/storage/blobkv"
	"github.com/lia-lab/lia-sync/internal/core/storage/postgres"
	"github.com/lia-lab/lia-sync/internal/core/storage/rediskv"
	"github.com/lia-lab/lia-sync/internal/dedup"
	"github.com/lia-lab/lia-sync/internal/ingestion"
	"github.com/lia-lab/lia-sync/internal/migrations"
	"github.com/lia-lab/lia-sync/internal/pipeline"
	"github.com/lia-lab/lia-sync/internal/server"
	"github.com/lia-lab/lia-sync/internal/source"
	"github.com/lia-lab/lia-sync/internal/uploader"
)

// drainTimeout bounds how long shutdown waits for fire-and-forget uploads.
const drainTimeout = 10 * time.Second

// App is a fully wired agent.
type App struct {
	Config   *config.Config
	Clock    coreagg.Clock
	Samples  storage.SampleStore
	State    storage.KVStore
	Guard    *dedup.Guard
	Uploader *uploader.Client
	Auth     *auth.Client
	Pipeline *pipeline.Pipeline

	checks  map[string]server.HealthChecker
	closers []func() error
}

// New builds an App for cfg. The caller must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		Clock:  coreagg.NewClock(cfg.Resolved.Location),
		checks: map[string]server.HealthChecker{},
	}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	enc, err := cipher.New(cfg.Cipher.Key)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}

	reader := source.NewStoreReader(a.Samples, source.Options{
		Required: cfg.Resolved.RequiredMetrics,
		Granted:  cfg.Resolved.GrantedMetrics,
		Lookback: cfg.Resolved.Lookback,
	})
	a.Guard = dedup.New(a.State, cfg.Resolved.Location)
	a.Uploader = uploader.New(uploader.Config{
		BaseURL: cfg.Upload.BaseURL,
		Path:    cfg.Upload.Path,
		Timeout: cfg.Resolved.UploadTimeout,
	}, a.State)
	a.Auth = auth.NewClient(cfg.Upload.BaseURL, cfg.Auth.LoginPath, cfg.Resolved.UploadTimeout, a.State)
	a.Pipeline = pipeline.New(a.Clock, reader, a.Guard, enc, a.Uploader, pipeline.Config{
		RecentSpan:     cfg.Resolved.RecentSpan,
		AwaitScheduled: cfg.Upload.AwaitScheduled,
	})

	slog.Info("[App] Initialized",
		"storage", cfg.Storage.Type,
		"upload_url", cfg.Upload.BaseURL+cfg.Upload.Path,
		"await_scheduled", cfg.Upload.AwaitScheduled,
		"timezone", cfg.Resolved.Location.String(),
	)
	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	cfg := a.Config.Storage

	switch cfg.Type {
	case config.StoragePostgres:
		db, err := postgres.Open(cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.checks["database"] = server.HealthCheckFunc(db.PingContext)

		if err := migrations.Run(db, cfg.Postgres.AutoMigrate); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
		adapter, err := postgres.NewAdapter(db)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, adapter.Close)
		a.Samples = adapter
		a.State = postgres.NewKVAdapter(db)
		return nil

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv, err := rediskv.New(ctx, client, cfg.Redis.KeyPrefix+":")
		if err != nil {
			client.Close()
			return err
		}
		a.closers = append(a.closers, kv.Close)
		a.checks["redis"] = server.HealthCheckFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		a.State = kv

	case config.StorageBlob:
		kv, err := blobkv.Open(ctx, cfg.BlobURL, cfg.BlobKey)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, kv.Close)
		a.State = kv

	case config.StorageMemory:
		a.State = storage.NewMemoryKV()

	default:
		return fmt.Errorf("unsupported storage.type %q", cfg.Type)
	}

	// Only Postgres persists raw samples; the other backends hold state only.
	a.Samples = storage.NewMemorySampleStore()
	return nil
}

// Services returns the HTTP services of the agent.
func (a *App) Services() []server.RouteRegistrar {
	return []server.RouteRegistrar{
		ingestion.NewService(a.Samples, a.Config.Server.MaxBodySizeMB),
		pipeline.NewService(a.Pipeline, a.Guard, a.Auth),
	}
}

// HealthChecks returns the backend checks reported on /health.
func (a *App) HealthChecks() map[string]server.HealthChecker {
	return a.checks
}

// Scheduler builds the hourly scheduled-upload loop.
func (a *App) Scheduler() *aggregation.Scheduler {
	job := func(ctx context.Context) error {
		_, err := a.Pipeline.RunScheduled(ctx)
		return err
	}
	return aggregation.NewScheduler(a.Clock, job, a.Config.Resolved.RetryDelay, func(err error) bool {
		return errors.Is(err, pipeline.ErrRetryable)
	})
}

// Close waits for in-flight uploads, then releases storage in reverse order
// of acquisition.
func (a *App) Close() error {
	var firstErr error
	if a.Uploader != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := a.Uploader.Drain(ctx); err != nil {
			slog.Warn("[App] In-flight uploads abandoned", "error", err)
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/fanstats/internal/core/config"
	redisclient "github.com/vietddude/fanstats/internal/infra/redis"
	"github.com/vietddude/fanstats/internal/infra/storage"
	"github.com/vietddude/fanstats/internal/infra/storage/memory"
	"github.com/vietddude/fanstats/internal/infra/storage/postgres"
)

// Stores holds the persistence backends selected by configuration.
type Stores struct {
	DB      *postgres.DB
	Redis   *redisclient.Client
	Memory  *memory.MemoryStorage
	Results *postgres.ResultRepo // nil without a database
	Failed  storage.FailedRequestRepository
}

// OpenStores connects to the configured database and Redis. Failed requests
// go to Redis when configured, then PostgreSQL, then memory.
func OpenStores(ctx context.Context, cfg *config.AppConfig) (*Stores, error) {
	s := &Stores{}

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		s.DB = db
		if err := db.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.Results = postgres.NewResultRepo(db)
		slog.Info("Using PostgreSQL storage")
	}

	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		s.Redis = rc
	}

	switch {
	case s.Redis != nil:
		s.Failed = redisclient.NewFailedRequestRepo(s.Redis)
		slog.Info("Using Redis for failed requests")
	case s.DB != nil:
		s.Failed = postgres.NewFailedRequestRepo(s.DB)
		slog.Info("Using PostgreSQL for failed requests")
	default:
		s.Memory = memory.NewMemoryStorage()
		s.Failed = memory.NewFailedRepo(s.Memory)
		slog.Info("Using Memory for failed requests")
	}
	return s, nil
}

// Close releases every open backend.
func (s *Stores) Close() error {
	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}

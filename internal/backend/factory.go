package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"subtrack/internal/fx"
	"subtrack/internal/storage"
	"subtrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		b   Backend
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		b, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		b, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{
		Backend: b,
		Rates:   b,
		Cleanup: b.Close,
	}

	if config.FXCache == "redis" {
		rs, err := fx.NewRedisStoreFromURL(ctx, config.RedisURL)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to connect fx redis cache: %w", err)
		}
		result.Rates = rs
		result.Cleanup = func() error {
			return errors.Join(rs.Close(), b.Close())
		}
		f.logger.Info("FX rate cache using Redis")
	}

	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (Backend, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Using SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (Backend, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.Info("Using in-memory backend", "seed_file", config.SeedFile)
	return store, nil
}

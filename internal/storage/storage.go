package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/types"
)

// Repository persists assembled brand contexts keyed by store URL.
type Repository interface {
	// Lookup returns the stored record for url. A backend failure is
	// logged and reported as a miss.
	Lookup(ctx context.Context, url string) (*types.StoreRecord, bool)

	// Store persists bc for url. Either every part of the record is
	// written or none is. Storing a url that already exists is a no-op.
	Store(ctx context.Context, url string, bc *types.BrandContext) error

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Open creates the repository selected by cfg.Type.
func Open(ctx context.Context, cfg *config.StorageConfig, metrics *observability.Metrics, logger *slog.Logger) (Repository, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryRepository(metrics, logger), nil
	case "sqlite", "postgres":
		return NewSQLRepository(ctx, cfg, metrics, logger)
	case "mongodb":
		return NewMongoRepository(ctx, cfg, metrics, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func countStore(metrics *observability.Metrics, err error) {
	if metrics == nil {
		return
	}
	if err != nil {
		metrics.StoresFailed.Add(1)
		return
	}
	metrics.StoresTotal.Add(1)
}

package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/types"
)

// MemoryRepository keeps records in process memory. Records are deep
// copied on the way in and out so callers cannot mutate stored state.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*types.StoreRecord
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository(metrics *observability.Metrics, logger *slog.Logger) *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*types.StoreRecord),
		metrics: metrics,
		logger:  logger.With("component", "memory_storage"),
	}
}

func (r *MemoryRepository) Name() string { return "memory" }

func (r *MemoryRepository) Lookup(_ context.Context, url string) (*types.StoreRecord, bool) {
	r.mu.RLock()
	rec, ok := r.records[url]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	bc, err := rec.Context.Clone()
	if err != nil {
		r.logger.Error("copy stored record", "url", url, "error", err)
		return nil, false
	}
	return &types.StoreRecord{ID: rec.ID, URL: rec.URL, Context: bc, CreatedAt: rec.CreatedAt}, true
}

func (r *MemoryRepository) Store(_ context.Context, url string, bc *types.BrandContext) error {
	clone, err := bc.Clone()
	if err != nil {
		err = &types.StorageError{Backend: r.Name(), Op: "store", Err: err}
		countStore(r.metrics, err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[url]; exists {
		r.logger.Debug("record already stored", "url", url)
		return nil
	}
	r.records[url] = &types.StoreRecord{
		ID:        uuid.NewString(),
		URL:       url,
		Context:   clone,
		CreatedAt: time.Now().UTC(),
	}
	countStore(r.metrics, nil)
	return nil
}

// Len returns the number of stored records.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *MemoryRepository) Close() error { return nil }

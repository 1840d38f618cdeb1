package fetcher

import (
	"context"

	"github.com/IshaanNene/storelens/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at rawURL. Transport failures and
	// non-2xx statuses are reported as *types.FetchError.
	Fetch(ctx context.Context, rawURL string) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

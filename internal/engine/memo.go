package engine

import (
	"context"
	"sync"

	"github.com/IshaanNene/storelens/internal/fetcher"
	"github.com/IshaanNene/storelens/internal/types"
)

// pageMemo is a per-aggregation Fetcher that fetches each distinct URL at
// most once. Concurrent callers for the same URL wait for the first fetch.
type pageMemo struct {
	next fetcher.Fetcher

	mu      sync.Mutex
	entries map[string]*memoEntry
}

type memoEntry struct {
	done chan struct{}
	resp *types.Response
	err  error
}

func newPageMemo(next fetcher.Fetcher) *pageMemo {
	return &pageMemo{
		next:    next,
		entries: make(map[string]*memoEntry),
	}
}

func (m *pageMemo) Fetch(ctx context.Context, rawURL string) (*types.Response, error) {
	m.mu.Lock()
	e, ok := m.entries[rawURL]
	if !ok {
		e = &memoEntry{done: make(chan struct{})}
		m.entries[rawURL] = e
		m.mu.Unlock()

		e.resp, e.err = m.next.Fetch(ctx, rawURL)
		close(e.done)
		return e.resp, e.err
	}
	m.mu.Unlock()

	select {
	case <-e.done:
		return e.resp, e.err
	case <-ctx.Done():
		return nil, &types.FetchError{URL: rawURL, Err: ctx.Err()}
	}
}

// Close is a no-op: the underlying fetcher outlives the memo.
func (m *pageMemo) Close() error { return nil }

func (m *pageMemo) Type() string { return "memo+" + m.next.Type() }

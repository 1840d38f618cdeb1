package fetcher

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync/atomic"
)

// ProxyPool rotates outbound requests across a fixed set of proxies.
type ProxyPool struct {
	proxies  []*url.URL
	rotation string
	index    atomic.Int64
}

// NewProxyPool parses rawURLs, skipping invalid entries. It returns nil
// when no usable proxy remains.
func NewProxyPool(rawURLs []string, rotation string, logger *slog.Logger) *ProxyPool {
	pool := &ProxyPool{rotation: rotation}
	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			logger.Warn("invalid proxy URL", "url", raw, "error", err)
			continue
		}
		pool.proxies = append(pool.proxies, u)
	}
	if len(pool.proxies) == 0 {
		return nil
	}
	logger.Info("proxy pool initialized", "count", len(pool.proxies), "rotation", rotation)
	return pool
}

// Next returns the proxy for the next request.
func (p *ProxyPool) Next() *url.URL {
	if p.rotation == "random" {
		return p.proxies[rand.IntN(len(p.proxies))]
	}
	idx := (p.index.Add(1) - 1) % int64(len(p.proxies))
	return p.proxies[idx]
}

// ProxyFunc adapts the pool to http.Transport.Proxy.
func (p *ProxyPool) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return p.Next(), nil
	}
}

// Len returns the number of proxies in the pool.
func (p *ProxyPool) Len() int { return len(p.proxies) }

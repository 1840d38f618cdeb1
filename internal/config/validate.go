package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/IshaanNene/storelens/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}

	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	switch cfg.Fetcher.ProxyRotation {
	case "", "round_robin", "random":
	default:
		return fmt.Errorf("fetcher.proxy_rotation must be round_robin or random, got %q", cfg.Fetcher.ProxyRotation)
	}
	for _, p := range cfg.Fetcher.Proxies {
		u, err := url.Parse(p)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid proxy URL %q", p)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return fmt.Errorf("unsupported proxy scheme %q in %q", u.Scheme, p)
		}
	}

	switch cfg.Storage.Type {
	case "memory":
	case "sqlite":
		if cfg.Storage.DSN == "" && cfg.Storage.Name == "" {
			return fmt.Errorf("storage.dsn or storage.name is required for sqlite")
		}
	case "postgres":
		if cfg.Storage.DSN == "" && cfg.Storage.Host == "" {
			return fmt.Errorf("storage.dsn or storage.host is required for postgres")
		}
	case "mongodb":
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for mongodb")
		}
		if cfg.Storage.Collection == "" {
			return fmt.Errorf("storage.collection must not be empty")
		}
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: memory, sqlite, postgres, mongodb)", cfg.Storage.Type)
	}
	if cfg.Storage.PoolSize < 1 {
		return fmt.Errorf("storage.pool_size must be >= 1, got %d", cfg.Storage.PoolSize)
	}
	if cfg.Storage.MaxOverflow < 0 {
		return fmt.Errorf("storage.max_overflow must be >= 0, got %d", cfg.Storage.MaxOverflow)
	}

	if cfg.Competitors.Limit < 1 {
		return fmt.Errorf("competitors.limit must be >= 1, got %d", cfg.Competitors.Limit)
	}
	for _, u := range cfg.Competitors.Fallback {
		if err := ValidateURL(u); err != nil {
			return fmt.Errorf("invalid fallback competitor %q: %w", u, err)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", types.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: URL must have a host", types.ErrInvalidURL)
	}
	return nil
}

// schemePrefix matches an explicit "<scheme>://" at the start of input.
var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// NormalizeStoreURL turns user input into a canonical store URL:
// https:// is prepended when no scheme is present and trailing slashes
// are dropped. Explicit schemes other than http(s) are rejected.
func NormalizeStoreURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", types.ErrInvalidURL)
	}
	if !schemePrefix.MatchString(s) {
		s = "https://" + s
	}
	s = strings.TrimRight(s, "/")
	if err := ValidateURL(s); err != nil {
		return "", err
	}
	return s, nil
}

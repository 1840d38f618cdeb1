package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for storelens.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      yaml:"server"`
	Fetcher     FetcherConfig     `mapstructure:"fetcher"     yaml:"fetcher"`
	Storage     StorageConfig     `mapstructure:"storage"     yaml:"storage"`
	Competitors CompetitorsConfig `mapstructure:"competitors" yaml:"competitors"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"     yaml:"metrics"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             yaml:"addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"           yaml:"timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`

	// Proxies are outbound proxy URLs; empty means direct connections
	// (or the environment's HTTP_PROXY).
	Proxies       []string `mapstructure:"proxies"        yaml:"proxies"`
	ProxyRotation string   `mapstructure:"proxy_rotation" yaml:"proxy_rotation"`
}

// StorageConfig selects and configures the store repository.
type StorageConfig struct {
	// Type is one of memory, sqlite, postgres, mongodb.
	Type string `mapstructure:"type" yaml:"type"`

	// DSN is a full connection string. When empty, SQL backends build
	// one from the component fields below.
	DSN      string `mapstructure:"dsn"      yaml:"dsn"`
	Host     string `mapstructure:"host"     yaml:"host"`
	Port     int    `mapstructure:"port"     yaml:"port"`
	User     string `mapstructure:"user"     yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Name     string `mapstructure:"name"     yaml:"name"`
	SSLMode  string `mapstructure:"ssl_mode" yaml:"ssl_mode"`

	PoolSize       int           `mapstructure:"pool_size"       yaml:"pool_size"`
	MaxOverflow    int           `mapstructure:"max_overflow"    yaml:"max_overflow"`
	PoolRecycle    time.Duration `mapstructure:"pool_recycle"    yaml:"pool_recycle"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`

	// Collection is the MongoDB collection holding store documents.
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// CompetitorsConfig controls the competitor resolver.
type CompetitorsConfig struct {
	APIKey   string        `mapstructure:"api_key"  yaml:"api_key"`
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Engine   string        `mapstructure:"engine"   yaml:"engine"`
	Timeout  time.Duration `mapstructure:"timeout"  yaml:"timeout"`
	Limit    int           `mapstructure:"limit"    yaml:"limit"`
	Fallback []string      `mapstructure:"fallback" yaml:"fallback"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus-format metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			RequestTimeout:  2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Fetcher: FetcherConfig{
			Timeout:         15 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			ProxyRotation: "round_robin",
		},
		Storage: StorageConfig{
			Type:           "memory",
			Port:           5432,
			SSLMode:        "disable",
			PoolSize:       5,
			MaxOverflow:    10,
			PoolRecycle:    30 * time.Minute,
			ConnectTimeout: 10 * time.Second,
			Collection:     "stores",
		},
		Competitors: CompetitorsConfig{
			Endpoint: "https://serpapi.com/search.json",
			Engine:   "google",
			Timeout:  15 * time.Second,
			Limit:    5,
			Fallback: []string{
				"https://competitor-one.example",
				"https://competitor-two.example",
				"https://competitor-three.example",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("STORELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("storelens")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".storelens"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper. Every key must be
// registered for AutomaticEnv to pick up its environment override.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.request_timeout", cfg.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	v.SetDefault("fetcher.timeout", cfg.Fetcher.Timeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.proxies", cfg.Fetcher.Proxies)
	v.SetDefault("fetcher.proxy_rotation", cfg.Fetcher.ProxyRotation)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("storage.host", cfg.Storage.Host)
	v.SetDefault("storage.port", cfg.Storage.Port)
	v.SetDefault("storage.user", cfg.Storage.User)
	v.SetDefault("storage.password", cfg.Storage.Password)
	v.SetDefault("storage.name", cfg.Storage.Name)
	v.SetDefault("storage.ssl_mode", cfg.Storage.SSLMode)
	v.SetDefault("storage.pool_size", cfg.Storage.PoolSize)
	v.SetDefault("storage.max_overflow", cfg.Storage.MaxOverflow)
	v.SetDefault("storage.pool_recycle", cfg.Storage.PoolRecycle)
	v.SetDefault("storage.connect_timeout", cfg.Storage.ConnectTimeout)
	v.SetDefault("storage.collection", cfg.Storage.Collection)

	v.SetDefault("competitors.api_key", cfg.Competitors.APIKey)
	v.SetDefault("competitors.endpoint", cfg.Competitors.Endpoint)
	v.SetDefault("competitors.engine", cfg.Competitors.Engine)
	v.SetDefault("competitors.timeout", cfg.Competitors.Timeout)
	v.SetDefault("competitors.limit", cfg.Competitors.Limit)
	v.SetDefault("competitors.fallback", cfg.Competitors.Fallback)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

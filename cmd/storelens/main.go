package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/storelens/internal/api"
	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/storage"
)

var (
	cfgFile     string
	verbose     bool
	addr        string
	storageType string
	storageDSN  string
	competitors []string
	limit       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "storelens",
		Short: "storelens - brand insights for Shopify storefronts",
		Long: `storelens scrapes a Shopify storefront into a structured brand context
(catalog, hero products, policies, FAQs, social handles, contact details,
about text and important links), persists it, and serves it over HTTP.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&storageType, "storage", "", "storage backend: memory, sqlite, postgres, mongodb")
	rootCmd.PersistentFlags().StringVar(&storageDSN, "dsn", "", "storage connection string")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(competitorsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(cfg, a.svc, a.metrics, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received signal, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape [url]",
		Short: "Fetch the brand context for a store and print it as JSON",
		Long:  "Fetch the brand context for a store through the configured repository, scraping the storefront only if it has not been stored yet.",
		Args:  cobra.ExactArgs(1),
		RunE:  runScrape,
	}
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Server.RequestTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	bc, err := a.svc.Insights(ctx, args[0])
	if err != nil {
		return err
	}
	logger.Info("scrape complete", "url", args[0], "elapsed", time.Since(start).Round(time.Millisecond))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(bc)
}

// competitorsCmd creates the "competitors" subcommand.
func competitorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "competitors [url]",
		Short: "Resolve the competitor list for a store",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompetitors,
	}
	cmd.Flags().StringSliceVar(&competitors, "with", nil, "explicit competitor URLs (skips the lookup)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum competitors (0 = config default)")
	return cmd
}

func runCompetitors(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	// The resolver never touches the repository.
	cfg.Storage.Type = "memory"

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Competitors.Timeout+5*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	storeURL, urls, err := a.svc.Competitors(ctx, args[0], competitors, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Competitors of %s:\n", storeURL)
	for _, u := range urls {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", u)
	}
	return nil
}

// migrateCmd creates the "migrate" subcommand. Opening a SQL repository
// creates any missing tables.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Connect to the configured storage and create its schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.ConnectTimeout+30*time.Second)
			defer cancel()

			repo, err := storage.Open(ctx, &cfg.Storage, nil, logger)
			if err != nil {
				return err
			}
			defer repo.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "storage %s is ready\n", repo.Name())
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storelens %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			redacted := *cfg
			redacted.Storage.Password = redact(cfg.Storage.Password)
			redacted.Storage.DSN = redact(cfg.Storage.DSN)
			redacted.Competitors.APIKey = redact(cfg.Competitors.APIKey)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(&redacted)
		},
	}
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// loadConfig loads and validates the configuration, applies flag
// overrides and builds the logger it describes.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if storageType != "" {
		cfg.Storage.Type = strings.ToLower(storageType)
	}
	if storageDSN != "" {
		cfg.Storage.DSN = storageDSN
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(&cfg.Logging), nil
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

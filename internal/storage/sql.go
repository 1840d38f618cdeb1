package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"

	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/types"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS brands (
		id         TEXT PRIMARY KEY,
		url        TEXT NOT NULL UNIQUE,
		name       TEXT,
		about      TEXT,
		facets     TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		brand_id TEXT NOT NULL REFERENCES brands(id) ON DELETE CASCADE,
		ordinal  INTEGER NOT NULL,
		title    TEXT,
		price    TEXT,
		url      TEXT,
		raw      TEXT NOT NULL,
		PRIMARY KEY (brand_id, ordinal)
	)`,
	`CREATE TABLE IF NOT EXISTS policies (
		brand_id       TEXT PRIMARY KEY REFERENCES brands(id) ON DELETE CASCADE,
		privacy_policy TEXT,
		return_policy  TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		brand_id    TEXT PRIMARY KEY REFERENCES brands(id) ON DELETE CASCADE,
		emails      TEXT NOT NULL,
		phones      TEXT NOT NULL,
		address     TEXT,
		return_info TEXT,
		other_info  TEXT
	)`,
}

// facets holds the parts of a BrandContext without their own table.
type facets struct {
	HeroProducts  []types.HeroProduct `json:"hero_products"`
	FAQs          []types.FAQ         `json:"faqs"`
	SocialHandles map[string]string   `json:"social_handles"`
	Links         types.Links         `json:"links"`
}

type brandRow struct {
	ID        string         `db:"id"`
	URL       string         `db:"url"`
	Name      sql.NullString `db:"name"`
	About     sql.NullString `db:"about"`
	Facets    string         `db:"facets"`
	CreatedAt int64          `db:"created_at"`
}

type policyRow struct {
	PrivacyPolicy sql.NullString `db:"privacy_policy"`
	ReturnPolicy  sql.NullString `db:"return_policy"`
}

type contactRow struct {
	Emails     string         `db:"emails"`
	Phones     string         `db:"phones"`
	Address    sql.NullString `db:"address"`
	ReturnInfo sql.NullString `db:"return_info"`
	OtherInfo  sql.NullString `db:"other_info"`
}

// SQLRepository stores brand contexts in a relational database through
// sqlx. It serves both the sqlite and postgres storage types.
type SQLRepository struct {
	db      *sqlx.DB
	backend string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewSQLRepository connects, applies pool settings, verifies the
// connection and creates the schema.
func NewSQLRepository(ctx context.Context, cfg *config.StorageConfig, metrics *observability.Metrics, logger *slog.Logger) (*SQLRepository, error) {
	driver, dsn := driverAndDSN(cfg)

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: cfg.Type, Op: "open", Err: err}
	}

	db.SetMaxIdleConns(cfg.PoolSize)
	db.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	db.SetConnMaxLifetime(cfg.PoolRecycle)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: cfg.Type, Op: "ping", Err: err}
	}

	r := &SQLRepository{
		db:      db,
		backend: cfg.Type,
		metrics: metrics,
		logger:  logger.With("component", "sql_storage", "backend", cfg.Type),
	}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	r.logger.Info("sql storage ready", "max_open_conns", cfg.PoolSize+cfg.MaxOverflow)
	return r, nil
}

// driverAndDSN maps the storage config to a database/sql driver name
// and connection string.
func driverAndDSN(cfg *config.StorageConfig) (string, string) {
	if cfg.Type == "sqlite" {
		if cfg.DSN != "" {
			return "sqlite", cfg.DSN
		}
		return "sqlite", "file:" + cfg.Name
	}
	if cfg.DSN != "" {
		return "postgres", cfg.DSN
	}
	return "postgres", fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
		int(cfg.ConnectTimeout/time.Second),
	)
}

func (r *SQLRepository) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return &types.StorageError{Backend: r.backend, Op: "migrate", Err: err}
		}
	}
	return nil
}

func (r *SQLRepository) Name() string { return r.backend }

func (r *SQLRepository) Lookup(ctx context.Context, url string) (*types.StoreRecord, bool) {
	rec, err := r.lookup(ctx, url)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.Error("lookup failed", "url", url, "error", err)
		}
		return nil, false
	}
	return rec, true
}

func (r *SQLRepository) lookup(ctx context.Context, url string) (*types.StoreRecord, error) {
	var brand brandRow
	err := r.db.GetContext(ctx, &brand, r.db.Rebind(
		`SELECT id, url, name, about, facets, created_at FROM brands WHERE url = ?`), url)
	if err != nil {
		return nil, err
	}

	bc := types.NewBrandContext()
	bc.BrandName = nullable(brand.Name)
	bc.About = nullable(brand.About)

	var f facets
	if err := json.Unmarshal([]byte(brand.Facets), &f); err != nil {
		return nil, fmt.Errorf("decode facets: %w", err)
	}
	bc.HeroProducts = f.HeroProducts
	bc.FAQs = f.FAQs
	bc.SocialHandles = f.SocialHandles
	bc.Links = f.Links

	var raws []string
	if err := r.db.SelectContext(ctx, &raws, r.db.Rebind(
		`SELECT raw FROM products WHERE brand_id = ? ORDER BY ordinal`), brand.ID); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	for _, raw := range raws {
		var p types.Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		bc.ProductCatalog = append(bc.ProductCatalog, p)
	}

	var pol policyRow
	if err := r.db.GetContext(ctx, &pol, r.db.Rebind(
		`SELECT privacy_policy, return_policy FROM policies WHERE brand_id = ?`), brand.ID); err != nil {
		return nil, fmt.Errorf("select policies: %w", err)
	}
	bc.Policies = types.Policy{PrivacyPolicy: nullable(pol.PrivacyPolicy), ReturnPolicy: nullable(pol.ReturnPolicy)}

	var c contactRow
	if err := r.db.GetContext(ctx, &c, r.db.Rebind(
		`SELECT emails, phones, address, return_info, other_info FROM contacts WHERE brand_id = ?`), brand.ID); err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	if err := json.Unmarshal([]byte(c.Emails), &bc.Contact.Emails); err != nil {
		return nil, fmt.Errorf("decode emails: %w", err)
	}
	if err := json.Unmarshal([]byte(c.Phones), &bc.Contact.Phones); err != nil {
		return nil, fmt.Errorf("decode phones: %w", err)
	}
	bc.Contact.Address = nullable(c.Address)
	bc.Contact.ReturnInfo = nullable(c.ReturnInfo)
	bc.Contact.OtherInfo = nullable(c.OtherInfo)

	bc.Normalize()
	return &types.StoreRecord{
		ID:        brand.ID,
		URL:       brand.URL,
		Context:   bc,
		CreatedAt: time.UnixMilli(brand.CreatedAt).UTC(),
	}, nil
}

// Store writes the brand and all of its sub-records in one transaction.
func (r *SQLRepository) Store(ctx context.Context, url string, bc *types.BrandContext) (err error) {
	defer func() {
		if err != nil {
			err = &types.StorageError{Backend: r.backend, Op: "store", Err: err}
		}
		countStore(r.metrics, err)
	}()

	bc.Normalize()
	facetJSON, err := json.Marshal(facets{
		HeroProducts:  bc.HeroProducts,
		FAQs:          bc.FAQs,
		SocialHandles: bc.SocialHandles,
		Links:         bc.Links,
	})
	if err != nil {
		return fmt.Errorf("encode facets: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback transaction", "url", url, "error", rbErr)
			}
		}
	}()

	brandID := uuid.NewString()
	res, err := tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO brands (id, url, name, about, facets, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (url) DO NOTHING`),
		brandID, url, bc.BrandName, bc.About, string(facetJSON), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert brand: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Another writer stored this url first.
		r.logger.Debug("record already stored", "url", url)
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("failed to rollback transaction", "url", url, "error", rbErr)
		}
		return nil
	}

	for i, p := range bc.ProductCatalog {
		raw, mErr := json.Marshal(p)
		if mErr != nil {
			err = fmt.Errorf("encode product %d: %w", i, mErr)
			return err
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO products (brand_id, ordinal, title, price, url, raw) VALUES (?, ?, ?, ?, ?, ?)`),
			brandID, i, productTitle(p), productPrice(p), productURL(url, p), string(raw)); err != nil {
			return fmt.Errorf("insert product %d: %w", i, err)
		}
	}

	if _, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO policies (brand_id, privacy_policy, return_policy) VALUES (?, ?, ?)`),
		brandID, bc.Policies.PrivacyPolicy, bc.Policies.ReturnPolicy); err != nil {
		return fmt.Errorf("insert policies: %w", err)
	}

	emails, err := json.Marshal(bc.Contact.Emails)
	if err != nil {
		return fmt.Errorf("encode emails: %w", err)
	}
	phones, err := json.Marshal(bc.Contact.Phones)
	if err != nil {
		return fmt.Errorf("encode phones: %w", err)
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO contacts (brand_id, emails, phones, address, return_info, other_info) VALUES (?, ?, ?, ?, ?, ?)`),
		brandID, string(emails), string(phones), bc.Contact.Address, bc.Contact.ReturnInfo, bc.Contact.OtherInfo); err != nil {
		return fmt.Errorf("insert contacts: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.logger.Debug("record stored", "url", url, "id", brandID, "products", len(bc.ProductCatalog))
	return nil
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func productTitle(p types.Product) *string {
	if s, ok := p["title"].(string); ok {
		return types.StringPtr(s)
	}
	return nil
}

// productPrice returns the price of the first variant, which is where
// the storefront catalog carries it.
func productPrice(p types.Product) *string {
	variants, ok := p["variants"].([]any)
	if !ok || len(variants) == 0 {
		return nil
	}
	v, ok := variants[0].(map[string]any)
	if !ok {
		return nil
	}
	switch price := v["price"].(type) {
	case string:
		return types.StringPtr(price)
	case float64:
		return types.StringPtr(fmt.Sprintf("%.2f", price))
	}
	return nil
}

func productURL(storeURL string, p types.Product) *string {
	if h, ok := p["handle"].(string); ok && h != "" {
		return types.StringPtr(storeURL + "/products/" + h)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/superpoupe/backend/internal/domain"
)

// Dialect selects placeholder syntax and driver
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLConfig holds database connection configuration
type SQLConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	search_name  TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL,
	price        DOUBLE PRECISION NOT NULL CHECK (price > 0),
	unit         TEXT NOT NULL,
	store        TEXT NOT NULL,
	last_updated TEXT NOT NULL,
	code         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_products_store ON products (store);
CREATE INDEX IF NOT EXISTS idx_products_category ON products (category);
`

const selectColumns = `SELECT id, name, category, price, unit, store, last_updated, code FROM products`

// SQLStore is a CatalogStore on PostgreSQL or SQLite
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// OpenSQL opens a database, checks the connection and creates the schema
func OpenSQL(ctx context.Context, cfg SQLConfig) (*SQLStore, error) {
	dialect, err := parseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if dialect == DialectSQLite {
		// one connection keeps ":memory:" databases alive and serializes writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		maxOpen := cfg.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 25
		}
		lifetime := cfg.ConnMaxLifetime
		if lifetime == 0 {
			lifetime = 5 * time.Minute
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
		db.SetConnMaxLifetime(lifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := NewSQLStore(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open database
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// Migrate creates the products table and indexes if missing
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// UpsertBatch writes the batch in one transaction, replacing rows by id
func (s *SQLStore) UpsertBatch(ctx context.Context, products []domain.Product) (err error) {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO products (id, name, search_name, category, price, unit, store, last_updated, code)
		VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			search_name = excluded.search_name,
			category = excluded.category,
			price = excluded.price,
			unit = excluded.unit,
			store = excluded.store,
			last_updated = excluded.last_updated,
			code = excluded.code`, s.placeholders(1, 9)))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		updated := p.LastUpdated
		if updated.IsZero() {
			updated = s.now()
		}
		if _, err = stmt.ExecContext(ctx,
			p.ID, p.Name, domain.FoldText(p.Name), p.Category, p.Price, p.Unit, string(p.Store),
			updated.UTC().Format(time.RFC3339Nano), p.Code,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", p.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Query returns products whose name contains TextSearch, ignoring case and
// accents, with exact category and store matches, ordered by name. Folding
// happens in Go on both sides; SQLite's LOWER only handles ASCII.
func (s *SQLStore) Query(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query := selectColumns + ` WHERE 1=1`
	args := []interface{}{}
	n := 1

	if text := domain.FoldText(strings.TrimSpace(filter.TextSearch)); text != "" {
		query += fmt.Sprintf(` AND search_name LIKE %s ESCAPE '\'`, s.placeholder(n))
		args = append(args, "%"+escapeLike(text)+"%")
		n++
	}
	if category := categoryFilter(filter.Category); category != "" {
		query += fmt.Sprintf(` AND category = %s`, s.placeholder(n))
		args = append(args, category)
		n++
	}
	if filter.Store != "" {
		query += fmt.Sprintf(` AND store = %s`, s.placeholder(n))
		args = append(args, string(filter.Store))
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return products, nil
}

// Count returns the number of stored products
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// Get returns the product with the given id
func (s *SQLStore) Get(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = `+s.placeholder(1), id)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func scanProduct(scan func(...interface{}) error) (*domain.Product, error) {
	p := &domain.Product{}
	var store, updated string
	err := scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Unit, &store, &updated, &p.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.Store = domain.StoreID(store)
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		p.LastUpdated = t
	}
	return p, nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (s *SQLStore) placeholders(from, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = s.placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}

// escapeLike escapes LIKE wildcards so user text matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func parseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

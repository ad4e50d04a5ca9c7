// Package sqlite provides a CatalogStore backed by the application's
// SQLite catalog database. The engine reads items and categories; it
// never owns writes, except for the fixture helpers used by tooling and
// tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
)

// Ensure Catalog implements the interface.
var _ driven.CatalogStore = (*Catalog)(nil)

// Catalog reads products from the shared SQLite catalog database.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open opens the catalog database and ensures the schema exists.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	c := &Catalog{db: db, path: path}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.path
}

func (c *Catalog) ensureSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category_id INTEGER NOT NULL REFERENCES categories(id),
			price REAL NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1
		);
		CREATE INDEX IF NOT EXISTS idx_products_active ON products(active);
		CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure catalog schema: %w", err)
	}
	return nil
}

const selectItem = `
	SELECT p.id, p.name, p.description, p.category_id, c.name, p.price, p.stock, p.active
	FROM products p
	JOIN categories c ON c.id = p.category_id
`

func scanItem(row interface{ Scan(...any) error }) (domain.Item, error) {
	var item domain.Item
	var active int
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.CategoryID,
		&item.CategoryName, &item.Price, &item.Stock, &active)
	item.Active = active != 0
	return item, err
}

// ListActive returns every active item in ascending id order.
func (c *Catalog) ListActive(ctx context.Context) ([]domain.Item, error) {
	rows, err := c.db.QueryContext(ctx, selectItem+" WHERE p.active = 1 ORDER BY p.id")
	if err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list active items: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}
	return items, nil
}

// Get retrieves a single item by id.
func (c *Catalog) Get(ctx context.Context, id int64) (*domain.Item, error) {
	row := c.db.QueryRowContext(ctx, selectItem+" WHERE p.id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return &item, nil
}

// FilterIDs narrows ids to those satisfying the filters, preserving the
// input order. Unknown ids are dropped: the vector index may briefly
// reference items deleted since the last rebuild.
func (c *Catalog) FilterIDs(ctx context.Context, ids []int64, filters domain.SearchFilters) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(selectItem)
	sb.WriteString(" WHERE p.active = 1 AND p.id IN (")
	args := make([]any, 0, len(ids)+len(filters.CategoryIDs)+2)
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("?")
		args = append(args, id)
	}
	sb.WriteString(")")

	if len(filters.CategoryIDs) > 0 {
		sb.WriteString(" AND p.category_id IN (")
		for i, id := range filters.CategoryIDs {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("?")
			args = append(args, id)
		}
		sb.WriteString(")")
	}
	if filters.MinPrice != nil {
		sb.WriteString(" AND p.price >= ?")
		args = append(args, *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		sb.WriteString(" AND p.price <= ?")
		args = append(args, *filters.MaxPrice)
	}

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("filter ids: %w", err)
	}
	defer rows.Close()

	matched := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("filter ids: %w", err)
		}
		matched[item.ID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("filter ids: %w", err)
	}

	out := make([]int64, 0, len(matched))
	for _, id := range ids {
		if _, ok := matched[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// UpsertCategory inserts or replaces a category. Fixture helper for
// tooling and tests.
func (c *Catalog) UpsertCategory(ctx context.Context, id int64, name string) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO categories (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name",
		id, name)
	if err != nil {
		return fmt.Errorf("upsert category %d: %w", id, err)
	}
	return nil
}

// UpsertItem inserts or replaces an item. Fixture helper for tooling and
// tests.
func (c *Catalog) UpsertItem(ctx context.Context, item domain.Item) error {
	active := 0
	if item.Active {
		active = 1
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, category_id, price, stock, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category_id = excluded.category_id,
			price = excluded.price,
			stock = excluded.stock,
			active = excluded.active`,
		item.ID, item.Name, item.Description, item.CategoryID, item.Price, item.Stock, active)
	if err != nil {
		return fmt.Errorf("upsert item %d: %w", item.ID, err)
	}
	return nil
}

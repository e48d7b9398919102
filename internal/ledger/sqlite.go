package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dshills/voicecart-mcp/pkg/types"
)

// SQLiteRepository stores the ledger in a SQLite database. SaveAll replaces
// the ledger inside a single transaction, so a failed save leaves the
// previous ledger intact.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer; also keeps an in-memory database alive across calls
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteRepository opens (creating if needed) the ledger database at dbPath
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// LoadAll returns every order with its items, in insertion order
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]types.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, total, currency, created_at, status
		FROM orders
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := []types.Order{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			o                types.Order
			total, createdAt string
			status           string
		)
		if err := rows.Scan(&o.ID, &total, &o.Currency, &createdAt, &status); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if o.Total, err = decimal.NewFromString(total); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("invalid total for order %s: %w", o.ID, err)
		}
		o.CreatedAt = types.TimestampOrRaw(createdAt)
		o.Status = types.Status(status)
		o.Items = []types.LineItem{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	_ = rows.Close()

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, quantity, unit_price, COALESCE(size, ''), currency
		FROM order_items
		ORDER BY order_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var (
			orderID   string
			item      types.LineItem
			unitPrice string
		)
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.Quantity, &unitPrice, &item.Size, &item.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("invalid unit_price in order %s: %w", orderID, err)
		}
		idx, ok := index[orderID]
		if !ok {
			continue
		}
		orders[idx].Items = append(orders[idx].Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}

	return orders, nil
}

// SaveAll replaces the stored ledger with orders
func (r *SQLiteRepository) SaveAll(ctx context.Context, orders []types.Order) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM order_items"); err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM orders"); err != nil {
		return fmt.Errorf("failed to clear orders: %w", err)
	}

	orderStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orders (id, position, total, currency, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare order insert: %w", err)
	}
	defer func() { _ = orderStmt.Close() }()

	itemStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_items (order_id, position, product_id, name, quantity, unit_price, size, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer func() { _ = itemStmt.Close() }()

	for pos, o := range orders {
		if err = o.Validate(); err != nil {
			return fmt.Errorf("invalid order at position %d: %w", pos, err)
		}
		if _, err = orderStmt.ExecContext(ctx, o.ID, pos, o.Total.String(), o.Currency, o.CreatedAt.String(), string(o.Status)); err != nil {
			return fmt.Errorf("failed to insert order %s: %w", o.ID, err)
		}
		for itemPos, item := range o.Items {
			var size any
			if item.Size != "" {
				size = item.Size
			}
			if _, err = itemStmt.ExecContext(ctx, o.ID, itemPos, item.ProductID, item.Name, item.Quantity, item.UnitPrice.String(), size, item.Currency); err != nil {
				return fmt.Errorf("failed to insert item %s of order %s: %w", item.ProductID, o.ID, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger: %w", err)
	}
	return nil
}

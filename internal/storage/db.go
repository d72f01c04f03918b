package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"expense-service/internal/models"

	"github.com/shopspring/decimal"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// timestampLayout is the storage format for created_at: RFC 3339 with a
// fixed-width nanosecond fraction, so lexicographic order in SQL matches
// chronological order. RFC3339Nano trims trailing zeros and breaks that.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps a sql.DB connection to the expense store.
type DB struct {
	conn *sql.DB

	// now is the clock used for created_at; overridable in tests.
	now func() time.Time
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			idempotency_key TEXT NOT NULL UNIQUE,
			amount TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_date_created
			ON expenses (date, created_at)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// InsertExpense persists a new expense in its own transaction and returns it
// with created_at assigned. A uniqueness violation on idempotency_key is
// returned as ErrDuplicateKey; any failed attempt is rolled back before the
// error is returned, so no partial state survives.
func (db *DB) InsertExpense(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert expense: %w", err)
	}

	createdAt := db.now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, idempotency_key, amount, category, description, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.IdempotencyKey, e.Amount.String(), e.Category, e.Description,
		e.Date.String(), createdAt.Format(timestampLayout),
	)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert expense %s: %w", e.IdempotencyKey, ErrDuplicateKey)
		}
		return nil, fmt.Errorf("insert expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert expense %s: %w", e.IdempotencyKey, ErrDuplicateKey)
		}
		return nil, fmt.Errorf("commit insert expense: %w", err)
	}

	persisted := *e
	persisted.CreatedAt = createdAt
	return &persisted, nil
}

// GetExpenseByKey retrieves the expense with the given idempotency key, or
// ErrNotFound if none exists.
func (db *DB) GetExpenseByKey(ctx context.Context, key string) (*models.Expense, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, idempotency_key, amount, category, description, date, created_at
		 FROM expenses WHERE idempotency_key = ?`,
		key,
	)

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense by key: %w", err)
	}
	return e, nil
}

// ListFilter narrows and orders a ListExpenses call.
type ListFilter struct {
	// Category, when non-empty, keeps only expenses whose category contains
	// it as a case-insensitive substring.
	Category string
	// OldestFirst flips the default newest-first ordering.
	OldestFirst bool
}

// ListExpenses retrieves expenses matching the filter, ordered by
// (date, created_at) with ties broken by insertion order.
func (db *DB) ListExpenses(ctx context.Context, f ListFilter) ([]models.Expense, error) {
	query := `SELECT id, idempotency_key, amount, category, description, date, created_at
		 FROM expenses`
	var args []any

	if f.Category != "" {
		query += ` WHERE instr(lower(category), lower(?)) > 0`
		args = append(args, f.Category)
	}

	if f.OldestFirst {
		query += ` ORDER BY date ASC, created_at ASC, rowid ASC`
	} else {
		query += ` ORDER BY date DESC, created_at DESC, rowid DESC`
	}

	return db.queryExpenses(ctx, query, args...)
}

// ListExpensesByMonth retrieves every expense dated within the given month,
// ordered newest first.
func (db *DB) ListExpensesByMonth(ctx context.Context, year int, month time.Month) ([]models.Expense, error) {
	start := models.NewDate(year, month, 1)
	end := models.NewDate(year, month+1, 1)

	return db.queryExpenses(ctx,
		`SELECT id, idempotency_key, amount, category, description, date, created_at
		 FROM expenses WHERE date >= ? AND date < ?
		 ORDER BY date DESC, created_at DESC, rowid DESC`,
		start.String(), end.String(),
	)
}

// Categories returns the distinct category values, alphabetically ordered.
func (db *DB) Categories(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT category FROM expenses ORDER BY category`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) queryExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}

	return expenses, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (*models.Expense, error) {
	var (
		e         models.Expense
		amount    string
		date      string
		createdAt string
	)
	if err := s.Scan(&e.ID, &e.IdempotencyKey, &amount, &e.Category, &e.Description, &date, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if e.Date, err = models.ParseDate(date); err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	if e.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return &e, nil
}

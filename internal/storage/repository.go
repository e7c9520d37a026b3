package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"billtrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores each row as a JSON payload keyed by id, with the
// price history in its own table. Insertion order is the seq column.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent handlers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListRows(ctx context.Context) ([]core.Row, error) {
	rs, err := r.db.QueryContext(ctx, `SELECT payload FROM bill_rows ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rs.Close()

	rows := []core.Row{}
	for rs.Next() {
		var payload string
		if err := rs.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row, err := decodeRow(payload)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRepository) GetRow(ctx context.Context, id string) (core.Row, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM bill_rows WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Row{}, ErrRowNotFound
	}
	if err != nil {
		return core.Row{}, fmt.Errorf("get row %s: %w", id, err)
	}
	return decodeRow(payload)
}

func (r *SQLiteRepository) InsertRow(ctx context.Context, row core.Row) error {
	payload, err := encodeRow(row)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO bill_rows (id, payload, version) VALUES (?, ?, ?)`,
		row.ID, payload, row.Version); err != nil {
		return fmt.Errorf("insert row: %w", err)
	}

	slog.DebugContext(ctx, "Row saved to SQLite", "id", row.ID, "version", row.Version)
	return nil
}

func (r *SQLiteRepository) SaveRow(ctx context.Context, row core.Row) error {
	payload, err := encodeRow(row)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE bill_rows SET payload = ?, version = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		payload, row.Version, row.ID)
	if err != nil {
		return fmt.Errorf("update row %s: %w", row.ID, err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteRow(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM price_history WHERE row_id = ?`, id); err != nil {
		return fmt.Errorf("delete price history %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM bill_rows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete row %s: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListPrices(ctx context.Context, rowID string) ([]core.PriceEntry, error) {
	if err := r.exists(ctx, rowID); err != nil {
		return nil, err
	}
	rs, err := r.db.QueryContext(ctx,
		`SELECT date, price FROM price_history WHERE row_id = ? ORDER BY seq`, rowID)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	defer rs.Close()

	entries := []core.PriceEntry{}
	for rs.Next() {
		var (
			e     core.PriceEntry
			price float64
		)
		if err := rs.Scan(&e.Date, &price); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		e.Price = core.Number(price)
		entries = append(entries, e)
	}
	return entries, rs.Err()
}

func (r *SQLiteRepository) AppendPrice(ctx context.Context, rowID string, e core.PriceEntry) error {
	if err := r.exists(ctx, rowID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO price_history (row_id, date, price) VALUES (?, ?, ?)`,
		rowID, e.Date, e.Price.Float64()); err != nil {
		return fmt.Errorf("append price: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeletePrice(ctx context.Context, rowID string, index int) error {
	if err := r.exists(ctx, rowID); err != nil {
		return err
	}
	if index < 0 {
		return ErrIndexOutOfRange
	}
	var seq int64
	err := r.db.QueryRowContext(ctx,
		`SELECT seq FROM price_history WHERE row_id = ? ORDER BY seq LIMIT 1 OFFSET ?`,
		rowID, index).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrIndexOutOfRange
	}
	if err != nil {
		return fmt.Errorf("find price %d: %w", index, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM price_history WHERE seq = ?`, seq); err != nil {
		return fmt.Errorf("delete price %d: %w", index, err)
	}
	return nil
}

func (r *SQLiteRepository) exists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM bill_rows WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRowNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup row %s: %w", id, err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrRowNotFound
	}
	return nil
}

func encodeRow(row core.Row) (string, error) {
	row.OCRWarning = ""
	b, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("encode row %s: %w", row.ID, err)
	}
	return string(b), nil
}

func decodeRow(payload string) (core.Row, error) {
	var row core.Row
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return core.Row{}, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

package storage

import (
	"context"
	"errors"

	"billtrack/internal/core"
)

var (
	ErrRowNotFound     = errors.New("row not found")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// RowReader lists and fetches rows in insertion order.
type RowReader interface {
	ListRows(ctx context.Context) ([]core.Row, error)
	GetRow(ctx context.Context, id string) (core.Row, error)
}

// RowWriter persists rows. SaveRow replaces an existing row and fails with
// ErrRowNotFound when the id is unknown.
type RowWriter interface {
	InsertRow(ctx context.Context, r core.Row) error
	SaveRow(ctx context.Context, r core.Row) error
	DeleteRow(ctx context.Context, id string) error
}

// PriceHistory stores the per-row price observations. Entries are addressed
// by position; deleting one shifts later entries down.
type PriceHistory interface {
	ListPrices(ctx context.Context, rowID string) ([]core.PriceEntry, error)
	AppendPrice(ctx context.Context, rowID string, e core.PriceEntry) error
	DeletePrice(ctx context.Context, rowID string, index int) error
}

type Repository interface {
	RowReader
	RowWriter
	PriceHistory
	Close() error
}

package contracts

import (
	"context"
	"errors"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// ErrNotFound is returned when a symbol has no stored record
var ErrNotFound = errors.New("record not found")

// MetricsRepository stores one StockMetricRecord per symbol
type MetricsRepository interface {
	// ListAll returns every stored record ordered by symbol
	ListAll(ctx context.Context) ([]StockMetricRecord, error)
	// Get returns ErrNotFound (wrapped) for unknown symbols
	Get(ctx context.Context, symbol string) (*StockMetricRecord, error)
	// Upsert overwrites the record stored under rec.Symbol
	Upsert(ctx context.Context, rec *StockMetricRecord) error
	// Symbols returns the set of stored symbols
	Symbols(ctx context.Context) (map[string]struct{}, error)
	Close() error
}

// RowSource streams records from a row-oriented store.
// fn 이 에러를 반환하면 순회를 멈추고 그 에러를 그대로 반환
type RowSource interface {
	Rows(ctx context.Context, fn func(rec *StockMetricRecord) error) error
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/pkg/database"
)

// columns maps record metrics to data.stock_metrics columns (same order as
// contracts.MetricNames)
var columns = []string{
	"market_cap",
	"forward_pe",
	"trailing_peg_ratio",
	"enterprise_to_revenue",
	"enterprise_to_ebitda",
	"free_cashflow",
	"debt_to_equity",
	"operating_margins",
	"earnings_growth",
	"revenue_growth",
	"return_on_assets",
	"return_on_equity",
	"gross_margins",
	"ebitda_margins",
}

// Schema creates the metrics table
var Schema = []string{
	`CREATE SCHEMA IF NOT EXISTS data`,
	`CREATE TABLE IF NOT EXISTS data.stock_metrics (
		symbol                TEXT PRIMARY KEY,
		name                  TEXT NOT NULL DEFAULT '',
		market_cap            DOUBLE PRECISION,
		forward_pe            DOUBLE PRECISION,
		trailing_peg_ratio    DOUBLE PRECISION,
		enterprise_to_revenue DOUBLE PRECISION,
		enterprise_to_ebitda  DOUBLE PRECISION,
		free_cashflow         DOUBLE PRECISION,
		debt_to_equity        DOUBLE PRECISION,
		operating_margins     DOUBLE PRECISION,
		earnings_growth       DOUBLE PRECISION,
		revenue_growth        DOUBLE PRECISION,
		return_on_assets      DOUBLE PRECISION,
		return_on_equity      DOUBLE PRECISION,
		gross_margins         DOUBLE PRECISION,
		ebitda_margins        DOUBLE PRECISION,
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Repository stores metric records in PostgreSQL
// ⭐ SSOT: data.stock_metrics 저장/조회는 여기서만
type Repository struct {
	db *database.DB
}

// New creates the repository and ensures the schema exists
func New(ctx context.Context, db *database.DB) (*Repository, error) {
	if err := db.Exec(ctx, Schema...); err != nil {
		return nil, fmt.Errorf("failed to migrate stock_metrics: %w", err)
	}
	return &Repository{db: db}, nil
}

func selectQuery(where string) string {
	return fmt.Sprintf("SELECT symbol, name, %s, updated_at FROM data.stock_metrics %s",
		strings.Join(columns, ", "), where)
}

func scanRecord(row pgx.Row) (*contracts.StockMetricRecord, error) {
	rec := &contracts.StockMetricRecord{}
	metrics := make([]*float64, len(columns))

	dest := make([]interface{}, 0, len(columns)+3)
	dest = append(dest, &rec.Symbol, &rec.Name)
	for i := range metrics {
		dest = append(dest, &metrics[i])
	}
	dest = append(dest, &rec.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	for i, m := range contracts.MetricNames {
		rec.SetMetric(m, metrics[i])
	}
	return rec, nil
}

// Rows streams all records ordered by symbol
func (r *Repository) Rows(ctx context.Context, fn func(rec *contracts.StockMetricRecord) error) error {
	rows, err := r.db.Pool.Query(ctx, selectQuery("ORDER BY symbol"))
	if err != nil {
		return fmt.Errorf("failed to query stock metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return fmt.Errorf("failed to scan stock metrics: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListAll returns every record ordered by symbol
func (r *Repository) ListAll(ctx context.Context) ([]contracts.StockMetricRecord, error) {
	records := make([]contracts.StockMetricRecord, 0)
	err := r.Rows(ctx, func(rec *contracts.StockMetricRecord) error {
		records = append(records, *rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns one record by symbol
func (r *Repository) Get(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	rec, err := scanRecord(r.db.Pool.QueryRow(ctx, selectQuery("WHERE symbol = $1"), symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock metrics: %w", err)
	}
	return rec, nil
}

// Upsert inserts or overwrites the record of rec.Symbol
func (r *Repository) Upsert(ctx context.Context, rec *contracts.StockMetricRecord) error {
	if rec.Symbol == "" {
		return errors.New("upsert: empty symbol")
	}

	placeholders := make([]string, 0, len(columns)+3)
	updates := make([]string, 0, len(columns)+2)
	args := make([]interface{}, 0, len(columns)+3)

	args = append(args, rec.Symbol, rec.Name)
	for i, m := range contracts.MetricNames {
		if v, ok := rec.Metric(m); ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", columns[i], columns[i]))
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	args = append(args, updatedAt)
	updates = append(updates, "name = EXCLUDED.name", "updated_at = EXCLUDED.updated_at")

	for i := range args {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}

	query := fmt.Sprintf(`
		INSERT INTO data.stock_metrics (symbol, name, %s, updated_at)
		VALUES (%s)
		ON CONFLICT (symbol) DO UPDATE SET %s
	`, strings.Join(columns, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", rec.Symbol, err)
	}
	return nil
}

// Symbols returns the set of stored symbols
func (r *Repository) Symbols(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.Pool.Query(ctx, "SELECT symbol FROM data.stock_metrics")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out[sym] = struct{}{}
	}
	return out, rows.Err()
}

// Close closes the connection pool
func (r *Repository) Close() error {
	r.db.Close()
	return nil
}

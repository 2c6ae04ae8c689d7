package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wonny/dinger/backend/internal/contracts"
)

// Store is the local row store (`stocks` table, one row per symbol).
// Column names are the record's JSON field names, matching stocks.db files
// written by the collection scripts.
// ⭐ SSOT: SQLite 접근은 여기서만
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database and migrates the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL: API 읽기와 ingest 쓰기 동시 진행
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// OpenReadOnly opens an existing database without touching its schema.
// 마이그레이션 원본(stocks.db) 읽기 전용
func OpenReadOnly(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) migrate() error {
	cols := make([]string, 0, len(contracts.MetricNames))
	for _, m := range contracts.MetricNames {
		cols = append(cols, fmt.Sprintf("%s REAL", m))
	}
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS stocks (
		symbol TEXT PRIMARY KEY,
		name TEXT,
		%s,
		updatedAt INTEGER
	)`, strings.Join(cols, ",\n\t\t"))

	if _, err := s.db.Exec(create); err != nil {
		return err
	}

	// 구버전 stocks.db 는 일부 컬럼만 존재 → 누락 컬럼 추가
	existing, err := s.columns()
	if err != nil {
		return err
	}
	for _, m := range contracts.MetricNames {
		if !existing[m] {
			if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE stocks ADD COLUMN %s REAL", m)); err != nil {
				return fmt.Errorf("add column %s: %w", m, err)
			}
		}
	}
	if !existing["updatedAt"] {
		if _, err := s.db.Exec("ALTER TABLE stocks ADD COLUMN updatedAt INTEGER"); err != nil {
			return fmt.Errorf("add column updatedAt: %w", err)
		}
	}
	return nil
}

func (s *Store) columns() (map[string]bool, error) {
	rows, err := s.db.Query("PRAGMA table_info(stocks)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Rows streams every row in symbol order. Columns are matched by name so
// files with only a subset of metric columns are read as well.
func (s *Store) Rows(ctx context.Context, fn func(rec *contracts.StockMetricRecord) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM stocks ORDER BY symbol")
	if err != nil {
		return fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read columns: %w", err)
	}

	for rows.Next() {
		rec, err := scanRow(rows, cols)
		if err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanRow(rows *sql.Rows, cols []string) (*contracts.StockMetricRecord, error) {
	var (
		symbol, name sql.NullString
		updatedAt    sql.NullInt64
	)
	metrics := make(map[string]*sql.NullFloat64)
	dest := make([]interface{}, len(cols))

	for i, col := range cols {
		switch {
		case col == "symbol":
			dest[i] = &symbol
		case col == "name":
			dest[i] = &name
		case col == "updatedAt":
			dest[i] = &updatedAt
		case contracts.IsMetric(col):
			v := new(sql.NullFloat64)
			metrics[col] = v
			dest[i] = v
		default:
			dest[i] = new(interface{})
		}
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	rec := &contracts.StockMetricRecord{
		Symbol: symbol.String,
		Name:   name.String,
	}
	for m, v := range metrics {
		if v.Valid {
			rec.SetMetric(m, contracts.Float(v.Float64))
		}
	}
	if updatedAt.Valid {
		rec.UpdatedAt = time.Unix(updatedAt.Int64, 0).UTC()
	}
	return rec, nil
}

// ListAll returns every record ordered by symbol
func (s *Store) ListAll(ctx context.Context) ([]contracts.StockMetricRecord, error) {
	records := make([]contracts.StockMetricRecord, 0)
	err := s.Rows(ctx, func(rec *contracts.StockMetricRecord) error {
		records = append(records, *rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns one record by symbol
func (s *Store) Get(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM stocks WHERE symbol = ?", symbol)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrNotFound)
	}
	return scanRow(rows, cols)
}

// Upsert inserts or replaces the row of rec.Symbol
func (s *Store) Upsert(ctx context.Context, rec *contracts.StockMetricRecord) error {
	if rec.Symbol == "" {
		return errors.New("upsert: empty symbol")
	}

	cols := append([]string{"symbol", "name"}, contracts.MetricNames...)
	cols = append(cols, "updatedAt")

	args := make([]interface{}, 0, len(cols))
	args = append(args, rec.Symbol, rec.Name)
	for _, m := range contracts.MetricNames {
		if v, ok := rec.Metric(m); ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	args = append(args, updatedAt.Unix())

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT OR REPLACE INTO stocks (%s) VALUES (%s)", strings.Join(cols, ", "), placeholders)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", rec.Symbol, err)
	}
	return nil
}

// Symbols returns the set of stored symbols
func (s *Store) Symbols(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT symbol FROM stocks")
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
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

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

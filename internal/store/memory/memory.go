package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/dinger/backend/internal/contracts"
)

// Store is an in-process MetricsRepository used for dry runs and tests
type Store struct {
	mu      sync.RWMutex
	records map[string]contracts.StockMetricRecord
}

// New creates a store seeded with records (later duplicates win)
func New(records ...contracts.StockMetricRecord) *Store {
	s := &Store{records: make(map[string]contracts.StockMetricRecord)}
	for _, r := range records {
		r.Normalize()
		s.records[r.Symbol] = r
	}
	return s
}

func (s *Store) sorted() []contracts.StockMetricRecord {
	out := make([]contracts.StockMetricRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ListAll returns every record ordered by symbol
func (s *Store) ListAll(ctx context.Context) ([]contracts.StockMetricRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(), nil
}

// Rows streams records ordered by symbol
func (s *Store) Rows(ctx context.Context, fn func(rec *contracts.StockMetricRecord) error) error {
	s.mu.RLock()
	records := s.sorted()
	s.mu.RUnlock()

	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&records[i]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one record
func (s *Store) Get(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrNotFound)
	}
	return &r, nil
}

// Upsert stores a copy of rec
func (s *Store) Upsert(ctx context.Context, rec *contracts.StockMetricRecord) error {
	if rec.Symbol == "" {
		return errors.New("upsert: empty symbol")
	}
	doc := *rec
	doc.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Symbol] = doc
	return nil
}

// Symbols returns the stored symbol set
func (s *Store) Symbols(ctx context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]struct{}, len(s.records))
	for sym := range s.records {
		out[sym] = struct{}{}
	}
	return out, nil
}

// Len returns the number of stored records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op
func (s *Store) Close() error { return nil }

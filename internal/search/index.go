package search

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// Search limits
const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Hit is one search result
type Hit struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

// Index is an in-memory ticker search index (symbol + company name)
// ⭐ SSOT: 종목 검색 (navbar)
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	size   int
	logger *logger.Logger
}

// NewIndex creates an empty index
func NewIndex(log *logger.Logger) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &Index{index: idx, logger: log}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	stockMapping := bleve.NewDocumentMapping()

	// key: 소문자 심볼 전체를 하나의 토큰으로 (BRK-B 분리 방지)
	keyMapping := bleve.NewTextFieldMapping()
	keyMapping.Analyzer = keyword.Name
	keyMapping.Store = false
	stockMapping.AddFieldMappingsAt("key", keyMapping)

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false
	storedOnly.Store = true
	stockMapping.AddFieldMappingsAt("symbol", storedOnly)

	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Store = true
	stockMapping.AddFieldMappingsAt("name", nameMapping)

	indexMapping.AddDocumentMapping("_default", stockMapping)
	return indexMapping
}

// Rebuild replaces the indexed documents with records
func (x *Index) Rebuild(records []contracts.StockMetricRecord) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create search index: %w", err)
	}

	batch := fresh.NewBatch()
	count := 0
	for _, rec := range records {
		if rec.Symbol == "" {
			continue
		}
		doc := map[string]interface{}{
			"key":    strings.ToLower(rec.Symbol),
			"symbol": rec.Symbol,
			"name":   rec.Name,
		}
		if err := batch.Index(rec.Symbol, doc); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("index %s: %w", rec.Symbol, err)
		}
		count++
	}
	if err := fresh.Batch(batch); err != nil {
		_ = fresh.Close()
		return fmt.Errorf("execute batch: %w", err)
	}

	x.mu.Lock()
	old := x.index
	x.index = fresh
	x.size = count
	x.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	x.logger.WithField("documents", count).Info("Search index rebuilt")
	return nil
}

// Len returns the number of indexed tickers
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.size
}

// Search returns up to limit hits ordered by relevance. An exact symbol
// match always comes first.
func (x *Index) Search(q string, limit int) ([]Hit, error) {
	q = sanitize(q)
	if q == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	lower := strings.ToLower(q)

	// 1. 심볼 완전 일치 (boost 10)
	exact := bleve.NewTermQuery(lower)
	exact.SetField("key")
	exact.SetBoost(10.0)

	// 2. 심볼 접두사 (boost 5)
	prefix := bleve.NewPrefixQuery(lower)
	prefix.SetField("key")
	prefix.SetBoost(5.0)

	// 3. 회사명 (boost 3)
	name := bleve.NewMatchQuery(q)
	name.SetField("name")
	name.SetBoost(3.0)

	// 4. 심볼 부분 일치 (boost 2)
	contains := bleve.NewWildcardQuery("*" + lower + "*")
	contains.SetField("key")
	contains.SetBoost(2.0)

	// 5. 회사명 부분 일치 (boost 1.5)
	nameContains := bleve.NewWildcardQuery("*" + lower + "*")
	nameContains.SetField("name")
	nameContains.SetBoost(1.5)

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(exact, prefix, name, contains, nameContains))
	req.Fields = []string{"symbol", "name"}
	req.Size = limit

	x.mu.RLock()
	res, err := x.index.Search(req)
	x.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{
			Symbol: stringField(h.Fields, "symbol"),
			Name:   stringField(h.Fields, "name"),
			Score:  h.Score,
		}
		if hit.Symbol == "" {
			hit.Symbol = h.ID
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		ei := strings.EqualFold(hits[i].Symbol, q)
		ej := strings.EqualFold(hits[j].Symbol, q)
		if ei != ej {
			return ei
		}
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Symbol < hits[j].Symbol
	})
	return hits, nil
}

// Close releases the index
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.index == nil {
		return errors.New("search index already closed")
	}
	err := x.index.Close()
	x.index = nil
	return err
}

// sanitize trims input and drops wildcard metacharacters
func sanitize(q string) string {
	q = strings.TrimSpace(q)
	return strings.NewReplacer("*", "", "?", "", "\\", "").Replace(q)
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

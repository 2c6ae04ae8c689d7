package screening

import (
	"sort"

	"github.com/wonny/dinger/backend/internal/contracts"
)

// Exclusion reasons reported in Stats.Excluded
const (
	ReasonNoSymbol   = "no_symbol"
	ReasonDuplicate  = "duplicate_symbol"
	ReasonMarketCap  = "market_cap"
	ReasonIncomplete = "incomplete"
	ReasonBelowFloor = "below_min_criteria"
)

// Stats summarises one Screen call
type Stats struct {
	Input    int            `json:"input"`
	Passed   int            `json:"passed"`
	Eligible int            `json:"eligible"`
	Excluded map[string]int `json:"excluded"`
}

// Screen filters, scores and orders records against a strategy.
// ⭐ SSOT: 스크리닝 알고리즘은 여기서만 (순수 함수, I/O 없음)
func Screen(records []contracts.StockMetricRecord, strategy *Strategy) []contracts.ScoredStock {
	scored, _ := ScreenWithStats(records, strategy)
	return scored
}

// ScreenWithStats is Screen plus per-reason exclusion counts.
//
// Order of gates: symbol, duplicates (last occurrence wins and keeps its
// position), market cap, completeness. Survivors are scored and stably
// sorted by criteriaPassed descending.
func ScreenWithStats(records []contracts.StockMetricRecord, strategy *Strategy) ([]contracts.ScoredStock, Stats) {
	stats := Stats{
		Input:    len(records),
		Excluded: make(map[string]int),
	}
	scored := make([]contracts.ScoredStock, 0)
	if strategy == nil {
		return scored, stats
	}

	// 같은 심볼은 마지막 레코드만 사용
	last := make(map[string]int, len(records))
	for i := range records {
		if records[i].Symbol != "" {
			last[records[i].Symbol] = i
		}
	}

	required := strategy.requiredMetrics()

	for i := range records {
		rec := &records[i]

		if rec.Symbol == "" {
			stats.Excluded[ReasonNoSymbol]++
			continue
		}
		if last[rec.Symbol] != i {
			stats.Excluded[ReasonDuplicate]++
			continue
		}

		// Phase 1: market-cap gate
		if !strategy.gate.Passes(rec.Metric(contracts.MetricMarketCap)) {
			stats.Excluded[ReasonMarketCap]++
			continue
		}

		// Phase 2: completeness gate
		if !complete(rec, required) {
			stats.Excluded[ReasonIncomplete]++
			continue
		}

		// Phase 3: per-rule evaluation
		s := evaluate(rec, strategy)
		if s.CriteriaPassed < strategy.minCriteriaPassed {
			stats.Excluded[ReasonBelowFloor]++
			continue
		}
		scored = append(scored, s)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CriteriaPassed > scored[j].CriteriaPassed
	})

	stats.Passed = len(scored)
	for i := range scored {
		if scored[i].Eligible {
			stats.Eligible++
		}
	}

	return scored, stats
}

func complete(rec *contracts.StockMetricRecord, metrics []string) bool {
	for _, m := range metrics {
		if _, ok := rec.Metric(m); !ok {
			return false
		}
	}
	return true
}

func evaluate(rec *contracts.StockMetricRecord, strategy *Strategy) contracts.ScoredStock {
	results := make([]contracts.RuleResult, 0, len(strategy.rules))
	passed := 0

	for _, rule := range strategy.rules {
		value, ok := rec.Metric(rule.Metric)
		pass := rule.Passes(value, ok)
		if pass {
			passed++
		}
		results = append(results, contracts.RuleResult{
			Metric:     rule.Metric,
			Comparator: string(rule.Comparator),
			Value:      value,
			Passed:     pass,
		})
	}

	return contracts.ScoredStock{
		StockMetricRecord: *rec,
		CriteriaPassed:    passed,
		Eligible:          passed > strategy.emphasisThreshold,
		Rules:             results,
	}
}

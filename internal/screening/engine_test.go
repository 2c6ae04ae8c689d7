package screening

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dinger/backend/internal/contracts"
)

var f = contracts.Float

// exampleStrategy mirrors the worked example: forwardPE in [10,40],
// PEG < 2, EV/Revenue > 5, EV/EBITDA > 15, FCF > 0, marketCap >= 10B
func exampleStrategy(t *testing.T, opts ...Option) *Strategy {
	t.Helper()
	s, err := NewStrategy("example", []ThresholdRule{
		InRange(contracts.MetricForwardPE, 10, 40),
		Below(contracts.MetricTrailingPegRatio, 2),
		Above(contracts.MetricEnterpriseToRevenue, 5),
		Above(contracts.MetricEnterpriseToEbitda, 15),
		Above(contracts.MetricFreeCashflow, 0),
	}, opts...)
	require.NoError(t, err)
	return s
}

func record(symbol string, marketCap, pe, peg, evRev, evEbitda, fcf float64) contracts.StockMetricRecord {
	return contracts.StockMetricRecord{
		Symbol:              symbol,
		MarketCap:           f(marketCap),
		ForwardPE:           f(pe),
		TrailingPegRatio:    f(peg),
		EnterpriseToRevenue: f(evRev),
		EnterpriseToEbitda:  f(evEbitda),
		FreeCashflow:        f(fcf),
	}
}

func symbols(scored []contracts.ScoredStock) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Symbol
	}
	return out
}

func TestScreen_WorkedExample(t *testing.T) {
	batch := []contracts.StockMetricRecord{
		record("A", 12e9, 15, 1, 3, 10, 1e8),
	}

	got := Screen(batch, exampleStrategy(t))

	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Symbol)
	assert.Equal(t, 3, got[0].CriteriaPassed)
	assert.False(t, got[0].Eligible, "3 does not exceed the emphasis threshold of 3")
	assert.Equal(t,
		[]string{contracts.MetricEnterpriseToRevenue, contracts.MetricEnterpriseToEbitda},
		got[0].FailedRules())
}

func TestScreen_NullMarketCapExcluded(t *testing.T) {
	rec := record("NOCAP", 0, 15, 1, 10, 20, 1e8)
	rec.MarketCap = nil

	got, stats := ScreenWithStats([]contracts.StockMetricRecord{rec}, exampleStrategy(t))

	assert.Empty(t, got)
	assert.Equal(t, 1, stats.Excluded[ReasonMarketCap])
}

func TestScreen_MarketCapGate(t *testing.T) {
	batch := []contracts.StockMetricRecord{
		record("EQ", 10e9, 15, 1, 10, 20, 1e8),
		record("BELOW", 10e9-1, 15, 1, 10, 20, 1e8),
	}

	inclusive := Screen(batch, exampleStrategy(t))
	assert.Equal(t, []string{"EQ"}, symbols(inclusive), "default gate is >=")

	exclusive := Screen(batch, exampleStrategy(t, WithMarketCapGate(10e9, false)))
	assert.Empty(t, exclusive, "exclusive gate drops marketCap == min")

	off := Screen(batch, exampleStrategy(t, WithoutMarketCapGate()))
	assert.Len(t, off, 2)
}

func TestScreen_CompletenessGateIsTotal(t *testing.T) {
	missing := record("MISSING", 20e9, 15, 1, 10, 20, 1e8)
	missing.FreeCashflow = nil
	nan := record("NAN", 20e9, math.NaN(), 1, 10, 20, 1e8)
	unrelated := record("UNRELATED", 20e9, 15, 1, 10, 20, 1e8)
	unrelated.DebtToEquity = nil // not referenced by the strategy

	got, stats := ScreenWithStats(
		[]contracts.StockMetricRecord{missing, nan, unrelated},
		exampleStrategy(t),
	)

	assert.Equal(t, []string{"UNRELATED"}, symbols(got))
	assert.Equal(t, 2, stats.Excluded[ReasonIncomplete])
}

func TestScreen_ComparatorBoundaries(t *testing.T) {
	tests := []struct {
		name string
		rule ThresholdRule
		v    float64
		want bool
	}{
		{"range min inclusive", InRange(contracts.MetricForwardPE, 10, 40), 10, true},
		{"range max inclusive", InRange(contracts.MetricForwardPE, 10, 40), 40, true},
		{"range below", InRange(contracts.MetricForwardPE, 10, 40), 9.99, false},
		{"range above", InRange(contracts.MetricForwardPE, 10, 40), 40.01, false},
		{"greater strict", Above(contracts.MetricForwardPE, 5), 5, false},
		{"greater pass", Above(contracts.MetricForwardPE, 5), 5.01, true},
		{"less strict", Below(contracts.MetricForwardPE, 2), 2, false},
		{"less pass", Below(contracts.MetricForwardPE, 2), 1.99, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStrategy("boundary", []ThresholdRule{tt.rule}, WithoutMarketCapGate())
			require.NoError(t, err)

			got := Screen([]contracts.StockMetricRecord{{Symbol: "X", ForwardPE: f(tt.v)}}, s)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].CriteriaPassed == 1)
		})
	}
}

func TestThresholdRule_FailsClosed(t *testing.T) {
	r := InRange(contracts.MetricForwardPE, 0, 100)
	assert.False(t, r.Passes(50, false))
	assert.False(t, r.Passes(math.NaN(), true))
	assert.False(t, ThresholdRule{Metric: contracts.MetricForwardPE, Comparator: "EQUAL"}.Passes(1, true))
}

func TestScreen_SortedDescendingAndStable(t *testing.T) {
	batch := []contracts.StockMetricRecord{
		record("FOUR_A", 20e9, 15, 1, 10, 10, 1e8), // 4
		record("TWO", 20e9, 50, 3, 10, 20, -1),    // 2
		record("FIVE", 20e9, 15, 1, 10, 20, 1e8),  // 5
		record("FOUR_B", 20e9, 15, 1, 1, 20, 1e8), // 4
		record("FOUR_C", 20e9, 5, 1, 10, 20, 1e8), // 4
	}

	got := Screen(batch, exampleStrategy(t))

	assert.Equal(t, []string{"FIVE", "FOUR_A", "FOUR_B", "FOUR_C", "TWO"}, symbols(got))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].CriteriaPassed, got[i].CriteriaPassed)
	}
	for _, s := range got {
		assert.GreaterOrEqual(t, s.CriteriaPassed, 0)
		assert.LessOrEqual(t, s.CriteriaPassed, 5)
		assert.Len(t, s.Rules, 5)
	}
}

func TestScreen_EligibleUsesEmphasisThreshold(t *testing.T) {
	batch := []contracts.StockMetricRecord{
		record("FIVE", 20e9, 15, 1, 10, 20, 1e8),
		record("FOUR", 20e9, 15, 1, 10, 10, 1e8),
		record("THREE", 20e9, 15, 1, 3, 10, 1e8),
	}

	got := Screen(batch, exampleStrategy(t))
	require.Len(t, got, 3)
	assert.True(t, got[0].Eligible)
	assert.True(t, got[1].Eligible)
	assert.False(t, got[2].Eligible)

	strict := Screen(batch, exampleStrategy(t, WithEmphasisThreshold(4)))
	assert.True(t, strict[0].Eligible)
	assert.False(t, strict[1].Eligible)
}

func TestScreen_MinCriteriaPassedFloor(t *testing.T) {
	batch := []contracts.StockMetricRecord{
		record("FIVE", 20e9, 15, 1, 10, 20, 1e8),
		record("THREE", 20e9, 15, 1, 3, 10, 1e8),
	}

	got, stats := ScreenWithStats(batch, exampleStrategy(t, WithMinCriteriaPassed(4)))
	assert.Equal(t, []string{"FIVE"}, symbols(got))
	assert.Equal(t, 1, stats.Excluded[ReasonBelowFloor])
}

func TestScreen_DuplicateSymbolsLastWins(t *testing.T) {
	batch := []contracts.StockMetricRecord{
		record("DUP", 20e9, 15, 1, 10, 20, 1e8), // 5, dropped
		record("OTHER", 20e9, 15, 1, 10, 10, 1e8),
		record("DUP", 20e9, 15, 1, 3, 10, 1e8), // 3, kept
	}

	got, stats := ScreenWithStats(batch, exampleStrategy(t))

	require.Len(t, got, 2)
	assert.Equal(t, []string{"OTHER", "DUP"}, symbols(got))
	assert.Equal(t, 3, got[1].CriteriaPassed)
	assert.Equal(t, 1, stats.Excluded[ReasonDuplicate])
}

func TestScreen_EmptySymbolExcluded(t *testing.T) {
	got, stats := ScreenWithStats(
		[]contracts.StockMetricRecord{record("", 20e9, 15, 1, 10, 20, 1e8)},
		exampleStrategy(t),
	)
	assert.Empty(t, got)
	assert.Equal(t, 1, stats.Excluded[ReasonNoSymbol])
}

func TestScreen_EmptyInput(t *testing.T) {
	got := Screen(nil, exampleStrategy(t))
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, Screen([]contracts.StockMetricRecord{record("A", 20e9, 15, 1, 10, 20, 1)}, nil))
}

func TestScreen_Deterministic(t *testing.T) {
	batch := []contracts.StockMetricRecord{
		record("A", 20e9, 15, 1, 10, 10, 1e8),
		record("B", 20e9, 15, 1, 1, 20, 1e8),
		record("C", 20e9, 15, 1, 10, 20, 1e8),
		record("D", 20e9, 5, 3, 1, 1, -1),
	}
	s := exampleStrategy(t)

	first := Screen(batch, s)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Screen(batch, s))
	}
}

func TestScreen_Idempotent(t *testing.T) {
	batch := []contracts.StockMetricRecord{
		record("A", 20e9, 15, 1, 10, 10, 1e8),
		record("B", 5e9, 15, 1, 10, 20, 1e8),
		record("C", 20e9, 15, 1, 10, 20, 1e8),
		record("D", 20e9, 5, 3, 1, 1, -1),
	}
	s := exampleStrategy(t)

	first := Screen(batch, s)

	again := make([]contracts.StockMetricRecord, len(first))
	for i := range first {
		again[i] = first[i].StockMetricRecord
	}
	second := Screen(again, s)

	assert.Equal(t, first, second)
}

func TestScreen_DoesNotMutateInput(t *testing.T) {
	batch := []contracts.StockMetricRecord{
		record("A", 20e9, 15, 1, 10, 10, 1e8),
		record("B", 20e9, 15, 1, 10, 20, 1e8),
	}

	Screen(batch, exampleStrategy(t))

	assert.Equal(t, "A", batch[0].Symbol)
	assert.Equal(t, "B", batch[1].Symbol)
}

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/pkg/logger"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.Rebuild([]contracts.StockMetricRecord{
		{Symbol: "AAPL", Name: "Apple Inc."},
		{Symbol: "AAP", Name: "Advance Auto Parts Inc."},
		{Symbol: "MSFT", Name: "Microsoft Corporation"},
		{Symbol: "BRK-B", Name: "Berkshire Hathaway Inc."},
		{Symbol: "", Name: "no symbol"},
	}))
	return idx
}

func symbolsOf(hits []Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Symbol)
	}
	return out
}

func TestRebuild_SkipsEmptySymbol(t *testing.T) {
	idx := newTestIndex(t)
	assert.Equal(t, 4, idx.Len())
}

func TestSearch_ExactSymbolFirst(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search("aap", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "AAP", hits[0].Symbol)
	assert.Contains(t, symbolsOf(hits), "AAPL")
}

func TestSearch_ByName(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search("microsoft", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "MSFT", hits[0].Symbol)
	assert.Equal(t, "Microsoft Corporation", hits[0].Name)
}

func TestSearch_HyphenatedSymbol(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search("BRK-B", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "BRK-B", hits[0].Symbol)
}

func TestSearch_EmptyAndLimit(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search("   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search("*", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "wildcards are stripped")

	hits, err = idx.Search("a", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestRebuild_Replaces(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Rebuild([]contracts.StockMetricRecord{{Symbol: "KO", Name: "Coca-Cola"}}))

	assert.Equal(t, 1, idx.Len())
	hits, err := idx.Search("AAPL", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/store/memory"
	"github.com/wonny/dinger/backend/pkg/config"
	"github.com/wonny/dinger/backend/pkg/logger"
	"github.com/wonny/dinger/backend/pkg/redis"
)

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeGenerator) Model() string { return "fake-model" }

const sampleResponse = `**Company Overview**
Apple designs consumer electronics.

**Qualities**
Strong brand and ecosystem.

**Risks:**
Regulatory pressure in app distribution.`

func newRepo() *memory.Store {
	return memory.New(contracts.StockMetricRecord{Symbol: "AAPL", Name: "Apple Inc."})
}

func TestAnalyze(t *testing.T) {
	gen := &fakeGenerator{text: sampleResponse}
	svc := NewService(gen, newRepo(), nil, 0, logger.Nop())

	a, err := svc.Analyze(context.Background(), " aapl ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, "Apple Inc.", a.Name)
	assert.Equal(t, "Apple designs consumer electronics.", a.Overview)
	assert.Equal(t, "Strong brand and ecosystem.", a.Qualities)
	assert.Equal(t, "Regulatory pressure in app distribution.", a.Risks)
	assert.Equal(t, "fake-model", a.Model)
	assert.False(t, a.GeneratedAt.IsZero())

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Apple Inc. (Ticker: AAPL)")
}

func TestAnalyze_DisabledCacheStillGenerates(t *testing.T) {
	gen := &fakeGenerator{text: sampleResponse}
	cache := redis.NewCache(redis.Disabled(), "test")
	svc := NewService(gen, newRepo(), cache, 0, logger.Nop())

	_, err := svc.Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, gen.prompts, 2)
}

func TestAnalyze_Unavailable(t *testing.T) {
	svc := NewService(nil, newRepo(), nil, 0, logger.Nop())
	assert.False(t, svc.Available())

	_, err := svc.Analyze(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
}

func TestAnalyze_UnknownSymbol(t *testing.T) {
	svc := NewService(&fakeGenerator{text: "x"}, newRepo(), nil, 0, logger.Nop())
	_, err := svc.Analyze(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestAnalyze_GeneratorError(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := NewService(&fakeGenerator{err: boom}, newRepo(), nil, 0, logger.Nop())
	_, err := svc.Analyze(context.Background(), "AAPL")
	assert.ErrorIs(t, err, boom)
}

func TestSplitSections_Paragraphs(t *testing.T) {
	o, q, r := splitSections("first\n\nsecond\n\nthird\n\nfourth")
	assert.Equal(t, "first", o)
	assert.Equal(t, "second", q)
	assert.Equal(t, "third\n\nfourth", r)

	o, q, r = splitSections("only one")
	assert.Equal(t, "only one", o)
	assert.Empty(t, q)
	assert.Empty(t, r)
}

func TestNewGemini_MissingKey(t *testing.T) {
	_, err := NewGemini(context.Background(), config.GeminiConfig{Model: "gemini-2.0-flash"})
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
}

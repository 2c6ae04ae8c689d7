package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/external/fmp"
	"github.com/wonny/dinger/backend/internal/store/memory"
	"github.com/wonny/dinger/backend/pkg/logger"
)

type fakeLister struct {
	list []fmp.ListedStock
	err  error
}

func (f fakeLister) StockList(ctx context.Context) ([]fmp.ListedStock, error) {
	return f.list, f.err
}

type fakeSource struct {
	records map[string]*contracts.StockMetricRecord
	errs    map[string]error
}

func (f fakeSource) lookup(symbol string) (*contracts.StockMetricRecord, error) {
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	if rec, ok := f.records[symbol]; ok {
		cp := *rec
		return &cp, nil
	}
	return &contracts.StockMetricRecord{Symbol: symbol}, nil
}

func (f fakeSource) Fetch(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	return f.lookup(symbol)
}

func (f fakeSource) KeyMetrics(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	return f.lookup(symbol)
}

type recorder struct {
	mu     sync.Mutex
	events []contracts.JobEvent
}

func (r *recorder) Publish(evt contracts.JobEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type invalidator struct{ calls int }

func (i *invalidator) Invalidate(ctx context.Context) { i.calls++ }

func testUniverse() Universe {
	return Universe{Exchanges: []string{"NYSE", "NASDAQ"}, MinPrice: 10, SkipExisting: true}
}

func fastOpts() Options {
	return Options{Workers: 2, RatePerSecond: 1000}
}

func TestJobRun_MergesSources(t *testing.T) {
	lister := fakeLister{list: []fmp.ListedStock{
		listed("AAPL", "NASDAQ", "stock", 190),
		listed("MSFT", "NASDAQ", "stock", 410),
	}}
	yahoo := fakeSource{records: map[string]*contracts.StockMetricRecord{
		"AAPL": {Name: "Apple", ForwardPE: contracts.Float(28)},
	}, errs: map[string]error{"MSFT": errors.New("blocked")}}
	fmpSrc := fakeSource{records: map[string]*contracts.StockMetricRecord{
		"AAPL": {ForwardPE: contracts.Float(99), MarketCap: contracts.Float(3e12)},
		"MSFT": {MarketCap: contracts.Float(3.1e12)},
	}}

	repo := memory.New()
	inv := &invalidator{}
	events := &recorder{}

	job := NewJob(lister, yahoo, fmpSrc, repo, testUniverse(), fastOpts(), logger.Nop()).
		WithEvents(events).
		WithInvalidator(inv)

	res, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Listed)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 0, res.Failed)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, inv.calls)

	aapl, err := repo.Get(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple", aapl.Name)
	assert.Equal(t, 28.0, *aapl.ForwardPE, "primary wins")
	assert.Equal(t, 3e12, *aapl.MarketCap, "fallback fills gaps")
	assert.False(t, aapl.UpdatedAt.IsZero())

	msft, err := repo.Get(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "MSFT Inc.", msft.Name, "listed name used when sources have none")
	assert.Equal(t, 3.1e12, *msft.MarketCap)

	types := events.types()
	require.NotEmpty(t, types)
	assert.Equal(t, contracts.JobStarted, types[0])
	assert.Equal(t, contracts.JobCompleted, types[len(types)-1])
}

func TestJobRun_SkipsEmptyAndFailed(t *testing.T) {
	lister := fakeLister{list: []fmp.ListedStock{
		listed("EMPT", "NYSE", "stock", 50),
		listed("FAIL", "NYSE", "stock", 50),
		listed("GOOD", "NYSE", "stock", 50),
	}}
	src := fakeSource{
		records: map[string]*contracts.StockMetricRecord{"GOOD": {ForwardPE: contracts.Float(12)}},
		errs:    map[string]error{"FAIL": errors.New("timeout")},
	}

	repo := memory.New()
	res, err := NewJob(lister, src, nil, repo, testUniverse(), fastOpts(), logger.Nop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, repo.Len())
}

func TestJobRun_SkipsExisting(t *testing.T) {
	lister := fakeLister{list: []fmp.ListedStock{
		listed("AAPL", "NASDAQ", "stock", 190),
		listed("KO", "NYSE", "stock", 60),
	}}
	src := fakeSource{records: map[string]*contracts.StockMetricRecord{
		"AAPL": {ForwardPE: contracts.Float(28)},
		"KO":   {ForwardPE: contracts.Float(20)},
	}}
	repo := memory.New(contracts.StockMetricRecord{Symbol: "KO", ForwardPE: contracts.Float(1)})

	res, err := NewJob(lister, src, nil, repo, testUniverse(), fastOpts(), logger.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Candidates)

	ko, err := repo.Get(context.Background(), "KO")
	require.NoError(t, err)
	assert.Equal(t, 1.0, *ko.ForwardPE, "existing row untouched")
}

func TestJobRun_DryRun(t *testing.T) {
	lister := fakeLister{list: []fmp.ListedStock{listed("AAPL", "NASDAQ", "stock", 190)}}
	src := fakeSource{records: map[string]*contracts.StockMetricRecord{"AAPL": {ForwardPE: contracts.Float(28)}}}
	repo := memory.New()

	opts := fastOpts()
	opts.DryRun = true
	res, err := NewJob(lister, src, nil, repo, testUniverse(), opts, logger.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 0, repo.Len())
}

func TestJobRun_Limit(t *testing.T) {
	lister := fakeLister{list: []fmp.ListedStock{
		listed("AAA", "NYSE", "stock", 50),
		listed("BBB", "NYSE", "stock", 50),
		listed("CCC", "NYSE", "stock", 50),
	}}
	src := fakeSource{records: map[string]*contracts.StockMetricRecord{
		"AAA": {ForwardPE: contracts.Float(1)},
		"BBB": {ForwardPE: contracts.Float(1)},
		"CCC": {ForwardPE: contracts.Float(1)},
	}}

	opts := fastOpts()
	opts.Limit = 2
	res, err := NewJob(lister, src, nil, memory.New(), testUniverse(), opts, logger.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 2, res.Stored)
}

func TestJobRun_ListError(t *testing.T) {
	listErr := errors.New("fmp down")
	events := &recorder{}
	job := NewJob(fakeLister{err: listErr}, fakeSource{}, nil, memory.New(), testUniverse(), fastOpts(), logger.Nop()).
		WithEvents(events)

	_, err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, listErr)
	assert.Equal(t, []string{contracts.JobFailed}, events.types())
}

func TestJobRun_NoSources(t *testing.T) {
	_, err := NewJob(fakeLister{}, nil, nil, memory.New(), testUniverse(), fastOpts(), logger.Nop()).Run(context.Background())
	assert.Error(t, err)
}

func TestJobRun_Cancelled(t *testing.T) {
	lister := fakeLister{list: []fmp.ListedStock{listed("AAPL", "NASDAQ", "stock", 190)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewJob(lister, fakeSource{}, nil, memory.New(), Universe{MinPrice: 10}, fastOpts(), logger.Nop()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

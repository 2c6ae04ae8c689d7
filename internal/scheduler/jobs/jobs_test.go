package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/external/fmp"
	"github.com/wonny/dinger/backend/internal/ingest"
	"github.com/wonny/dinger/backend/internal/search"
	"github.com/wonny/dinger/backend/internal/store/memory"
	"github.com/wonny/dinger/backend/pkg/logger"
)

type staticRecords struct {
	records []contracts.StockMetricRecord
	err     error
}

func (s staticRecords) Records(ctx context.Context) ([]contracts.StockMetricRecord, error) {
	return s.records, s.err
}

func TestSearchIndexJob(t *testing.T) {
	idx, err := search.NewIndex(logger.Nop())
	require.NoError(t, err)
	defer idx.Close()

	job := NewSearchIndexJob(staticRecords{records: []contracts.StockMetricRecord{
		{Symbol: "AAPL", Name: "Apple Inc."},
		{Symbol: "MSFT", Name: "Microsoft"},
	}}, idx, logger.Nop())

	assert.Equal(t, "search_index", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 2, idx.Len())
}

func TestSearchIndexJob_SourceError(t *testing.T) {
	idx, err := search.NewIndex(logger.Nop())
	require.NoError(t, err)
	defer idx.Close()

	job := NewSearchIndexJob(staticRecords{err: errors.New("db down")}, idx, logger.Nop())
	assert.Error(t, job.Run(context.Background()))
}

type listOnly []fmp.ListedStock

func (l listOnly) StockList(ctx context.Context) ([]fmp.ListedStock, error) { return l, nil }

type oneMetric struct{}

func (oneMetric) Fetch(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	return &contracts.StockMetricRecord{ForwardPE: contracts.Float(15)}, nil
}

func TestIngestJob(t *testing.T) {
	repo := memory.New()
	inner := ingest.NewJob(
		listOnly{{Symbol: "KO", ExchangeShortName: "NYSE", Type: "stock", Price: 60}},
		oneMetric{}, nil, repo,
		ingest.Universe{Exchanges: []string{"NYSE"}, MinPrice: 10},
		ingest.Options{RatePerSecond: 1000},
		logger.Nop(),
	)

	job := NewIngestJob(inner, "0 0 6 * * *", logger.Nop())
	assert.Equal(t, "ingest", job.Name())
	assert.Equal(t, "0 0 6 * * *", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, repo.Len())
}

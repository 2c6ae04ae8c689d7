package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/store/memory"
	"github.com/wonny/dinger/backend/pkg/config"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// failingSource yields n rows then fails
type failingSource struct {
	rows []contracts.StockMetricRecord
	err  error
}

func (s *failingSource) Rows(ctx context.Context, fn func(rec *contracts.StockMetricRecord) error) error {
	for i := range s.rows {
		if err := fn(&s.rows[i]); err != nil {
			return err
		}
	}
	return s.err
}

type failingWriter struct {
	*memory.Store
	failOn string
}

func (w *failingWriter) Upsert(ctx context.Context, rec *contracts.StockMetricRecord) error {
	if rec.Symbol == w.failOn {
		return errors.New("quota exceeded")
	}
	return w.Store.Upsert(ctx, rec)
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

func bufferLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.NewWithWriter(&config.Config{LogLevel: "info", Env: "development"}, buf)
}

func TestExporter_Run(t *testing.T) {
	src := memory.New(
		contracts.StockMetricRecord{Symbol: "AAPL", MarketCap: contracts.Float(3e12)},
		contracts.StockMetricRecord{Symbol: "MSFT"},
	)
	dst := memory.New()
	events := &recorder{}
	var buf bytes.Buffer

	res, err := New(src, dst, events, bufferLogger(&buf)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Migrated)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, dst.Len())

	got, err := dst.Get(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 3e12, *got.MarketCap)

	out := buf.String()
	assert.Contains(t, out, "Migrated AAPL")
	assert.Contains(t, out, "Migrated MSFT")
	assert.Contains(t, out, "Migration complete")

	require.Len(t, events.events, 4)
	assert.Equal(t, contracts.JobStarted, events.events[0].Type)
	assert.Equal(t, contracts.JobCompleted, events.events[3].Type)
	assert.Equal(t, 2, events.events[3].Done)
}

func TestExporter_ReadErrorAbortsWithoutRollback(t *testing.T) {
	readErr := errors.New("disk I/O error")
	src := &failingSource{
		rows: []contracts.StockMetricRecord{{Symbol: "A"}, {Symbol: "B"}},
		err:  readErr,
	}
	dst := memory.New()
	var buf bytes.Buffer

	res, err := New(src, dst, nil, bufferLogger(&buf)).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, readErr))
	assert.Equal(t, 2, res.Migrated)
	assert.Equal(t, 2, dst.Len(), "documents already written remain")
	assert.NotContains(t, buf.String(), "Migration complete")
	assert.Contains(t, buf.String(), `"stage":"read"`)
}

func TestExporter_WriteErrorAborts(t *testing.T) {
	src := memory.New(
		contracts.StockMetricRecord{Symbol: "A"},
		contracts.StockMetricRecord{Symbol: "B"},
		contracts.StockMetricRecord{Symbol: "C"},
	)
	dst := &failingWriter{Store: memory.New(), failOn: "B"}
	events := &recorder{}
	var buf bytes.Buffer

	res, err := New(src, dst, events, bufferLogger(&buf)).Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, res.Migrated)
	assert.Equal(t, 1, dst.Len())
	assert.Contains(t, buf.String(), `"stage":"write"`)
	assert.Equal(t, contracts.JobFailed, events.events[len(events.events)-1].Type)
}

func TestExporter_DuplicateSymbolsLastWriteWins(t *testing.T) {
	src := &failingSource{rows: []contracts.StockMetricRecord{
		{Symbol: "DUP", Name: "first"},
		{Symbol: "DUP", Name: "second"},
	}}
	dst := memory.New()

	res, err := New(src, dst, nil, logger.Nop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Migrated, "one write per source row")
	got, err := dst.Get(context.Background(), "DUP")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
}

func TestExporter_SkipsRowsWithoutSymbol(t *testing.T) {
	src := &failingSource{rows: []contracts.StockMetricRecord{{Name: "orphan"}, {Symbol: "OK"}}}
	dst := memory.New()

	res, err := New(src, dst, nil, logger.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Migrated)
	assert.Equal(t, 1, res.Skipped)
}

func TestExporter_EmptySource(t *testing.T) {
	var buf bytes.Buffer
	res, err := New(memory.New(), memory.New(), nil, bufferLogger(&buf)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Migrated)
	assert.True(t, strings.Contains(buf.String(), "Migration complete"))
}

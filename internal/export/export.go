package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// JobName identifies export runs in job events
const JobName = "export"

// Writer receives one document per source row
type Writer interface {
	Upsert(ctx context.Context, rec *contracts.StockMetricRecord) error
}

// Result summarises one export run
type Result struct {
	RunID    string        `json:"runId"`
	Migrated int           `json:"migrated"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Exporter copies every row of a row store into a document store keyed by
// symbol. There is no rollback: documents written before a failure stay.
// ⭐ SSOT: SQLite → 문서 저장소 일괄 이전
type Exporter struct {
	source contracts.RowSource
	dest   Writer
	events contracts.EventPublisher
	logger *logger.Logger
}

// New creates an exporter. events may be nil.
func New(source contracts.RowSource, dest Writer, events contracts.EventPublisher, log *logger.Logger) *Exporter {
	if events == nil {
		events = contracts.NopPublisher{}
	}
	return &Exporter{
		source: source,
		dest:   dest,
		events: events,
		logger: log,
	}
}

// errWrite marks failures raised by the destination
type errWrite struct{ err error }

func (e *errWrite) Error() string { return e.err.Error() }
func (e *errWrite) Unwrap() error { return e.err }

// Run performs the export. A read or write error aborts the run; the
// returned Result still counts the documents already written.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	log := e.logger.WithField("run_id", res.RunID)

	e.publish(res, contracts.JobStarted, "", "")

	err := e.source.Rows(ctx, func(rec *contracts.StockMetricRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		// 문서 키가 없으면 쓸 수 없음
		if rec.Symbol == "" {
			res.Skipped++
			log.Warn("Skipping row without symbol")
			return nil
		}

		if err := e.dest.Upsert(ctx, rec); err != nil {
			return &errWrite{fmt.Errorf("write %s: %w", rec.Symbol, err)}
		}

		res.Migrated++
		log.WithField("symbol", rec.Symbol).Infof("Migrated %s", rec.Symbol)
		e.publish(res, contracts.JobProgress, rec.Symbol, "")
		return nil
	})
	res.Duration = time.Since(start)

	if err != nil {
		var we *errWrite
		stage := "read"
		if errors.As(err, &we) {
			stage = "write"
		}
		log.WithError(err).WithFields(map[string]interface{}{
			"stage":    stage,
			"migrated": res.Migrated,
		}).Error("Migration aborted")
		e.publish(res, contracts.JobFailed, "", err.Error())
		return res, fmt.Errorf("export aborted after %d documents: %w", res.Migrated, err)
	}

	log.WithFields(map[string]interface{}{
		"migrated": res.Migrated,
		"skipped":  res.Skipped,
		"duration": res.Duration,
	}).Info("Migration complete")
	e.publish(res, contracts.JobCompleted, "", "")

	return res, nil
}

func (e *Exporter) publish(res *Result, typ, symbol, msg string) {
	e.events.Publish(contracts.JobEvent{
		RunID:   res.RunID,
		Job:     JobName,
		Type:    typ,
		Symbol:  symbol,
		Done:    res.Migrated,
		Message: msg,
		Time:    time.Now().UTC(),
	})
}

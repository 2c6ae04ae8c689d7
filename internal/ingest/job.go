package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/external/fmp"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// JobName identifies ingest runs in job events
const JobName = "ingest"

// Lister provides the symbol universe (FMP stock list)
type Lister interface {
	StockList(ctx context.Context) ([]fmp.ListedStock, error)
}

// QuoteSource is the primary per-ticker source (Yahoo)
type QuoteSource interface {
	Fetch(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error)
}

// MetricsSource fills gaps left by the primary source (FMP)
type MetricsSource interface {
	KeyMetrics(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error)
}

// Invalidator drops cached screening input after new data lands
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Options tunes a run
type Options struct {
	Workers       int
	RatePerSecond float64 // per-ticker fetch rate across all workers
	Limit         int     // max candidates, 0 = all
	DryRun        bool    // fetch but do not store
}

// Result summarises one ingest run
type Result struct {
	RunID      string        `json:"runId"`
	Listed     int           `json:"listed"`
	Candidates int           `json:"candidates"`
	Stored     int           `json:"stored"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// Job collects fundamentals for new tickers and stores them
// ⭐ SSOT: 종목 지표 수집 (Yahoo 우선, FMP 보조)
type Job struct {
	lister   Lister
	primary  QuoteSource
	fallback MetricsSource
	repo     contracts.MetricsRepository
	universe Universe
	opts     Options
	events   contracts.EventPublisher
	cache    Invalidator
	logger   *logger.Logger
}

// NewJob creates an ingest job. primary or fallback may be nil, not both.
func NewJob(
	lister Lister,
	primary QuoteSource,
	fallback MetricsSource,
	repo contracts.MetricsRepository,
	universe Universe,
	opts Options,
	log *logger.Logger,
) *Job {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	return &Job{
		lister:   lister,
		primary:  primary,
		fallback: fallback,
		repo:     repo,
		universe: universe,
		opts:     opts,
		events:   contracts.NopPublisher{},
		logger:   log.WithField("module", "ingest"),
	}
}

// WithEvents publishes progress to p
func (j *Job) WithEvents(p contracts.EventPublisher) *Job {
	if p != nil {
		j.events = p
	}
	return j
}

// WithInvalidator clears the screening cache after a run that stored data
func (j *Job) WithInvalidator(inv Invalidator) *Job {
	j.cache = inv
	return j
}

// outcome of one ticker
type outcome int

const (
	outcomeStored outcome = iota
	outcomeSkipped
	outcomeFailed
)

type tickerResult struct {
	symbol  string
	outcome outcome
	err     error
}

// Run executes list → filter → fetch → merge → upsert
func (j *Job) Run(ctx context.Context) (*Result, error) {
	if j.primary == nil && j.fallback == nil {
		return nil, errors.New("ingest: no metric source configured")
	}

	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	log := j.logger.WithField("run_id", res.RunID)

	listed, err := j.lister.StockList(ctx)
	if err != nil {
		j.fail(res, err)
		return res, fmt.Errorf("list stocks: %w", err)
	}
	res.Listed = len(listed)

	existing := map[string]struct{}{}
	if j.universe.SkipExisting {
		if existing, err = j.repo.Symbols(ctx); err != nil {
			j.fail(res, err)
			return res, fmt.Errorf("load existing symbols: %w", err)
		}
	}

	candidates := j.universe.Filter(listed, existing)
	if j.opts.Limit > 0 && len(candidates) > j.opts.Limit {
		candidates = candidates[:j.opts.Limit]
	}
	res.Candidates = len(candidates)

	log.WithFields(map[string]interface{}{
		"listed":     res.Listed,
		"candidates": res.Candidates,
		"existing":   len(existing),
		"workers":    j.opts.Workers,
		"dry_run":    j.opts.DryRun,
	}).Info("Starting ingest")
	j.publish(res, contracts.JobStarted, "", "")

	limiter := rate.NewLimiter(rate.Limit(j.opts.RatePerSecond), 1)
	stockCh := make(chan fmp.ListedStock)
	resultCh := make(chan tickerResult)

	var wg sync.WaitGroup
	for i := 0; i < j.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range stockCh {
				resultCh <- j.processOne(ctx, limiter, s)
			}
		}()
	}

	go func() {
		defer close(stockCh)
		for _, s := range candidates {
			select {
			case stockCh <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for r := range resultCh {
		switch r.outcome {
		case outcomeStored:
			res.Stored++
		case outcomeSkipped:
			res.Skipped++
		case outcomeFailed:
			res.Failed++
			log.WithError(r.err).WithField("symbol", r.symbol).Warn("Ticker failed")
		}
		j.publish(res, contracts.JobProgress, r.symbol, "")
	}
	res.Duration = time.Since(start)

	if res.Stored > 0 && j.cache != nil {
		j.cache.Invalidate(ctx)
	}

	if err := ctx.Err(); err != nil {
		j.fail(res, err)
		return res, fmt.Errorf("ingest cancelled: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"stored":   res.Stored,
		"skipped":  res.Skipped,
		"failed":   res.Failed,
		"duration": res.Duration,
	}).Info("Ingest completed")
	j.publish(res, contracts.JobCompleted, "", "")

	return res, nil
}

// processOne fetches, merges and stores one ticker
func (j *Job) processOne(ctx context.Context, limiter *rate.Limiter, s fmp.ListedStock) tickerResult {
	out := tickerResult{symbol: s.Symbol}

	if err := limiter.Wait(ctx); err != nil {
		out.outcome, out.err = outcomeFailed, err
		return out
	}

	rec, err := j.fetch(ctx, s.Symbol)
	if err != nil {
		out.outcome, out.err = outcomeFailed, err
		return out
	}

	rec.Symbol = s.Symbol
	if rec.Name == "" {
		rec.Name = s.Name
	}
	// 지표가 하나도 없으면 저장하지 않음
	if !rec.HasAnyMetric() {
		out.outcome = outcomeSkipped
		return out
	}
	rec.UpdatedAt = time.Now().UTC()

	if j.opts.DryRun {
		j.logger.WithField("symbol", s.Symbol).Debug("Dry run, not storing")
		out.outcome = outcomeStored
		return out
	}

	if err := j.repo.Upsert(ctx, rec); err != nil {
		out.outcome, out.err = outcomeFailed, fmt.Errorf("upsert: %w", err)
		return out
	}
	out.outcome = outcomeStored
	return out
}

// fetch merges the primary record with the fallback. Fails only when
// every configured source fails.
func (j *Job) fetch(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	var errs []error
	var rec *contracts.StockMetricRecord

	if j.primary != nil {
		r, err := j.primary.Fetch(ctx, symbol)
		if err != nil {
			errs = append(errs, err)
		} else {
			rec = r
		}
	}

	if j.fallback != nil {
		r, err := j.fallback.KeyMetrics(ctx, symbol)
		if err != nil {
			errs = append(errs, err)
		} else if rec == nil {
			rec = r
		} else {
			rec.FillMissing(r)
		}
	}

	if rec == nil {
		if len(errs) == 0 {
			return nil, fmt.Errorf("no data for %s", symbol)
		}
		return nil, errors.Join(errs...)
	}
	return rec, nil
}

func (j *Job) fail(res *Result, err error) {
	j.logger.WithError(err).WithField("run_id", res.RunID).Error("Ingest failed")
	j.publish(res, contracts.JobFailed, "", err.Error())
}

func (j *Job) publish(res *Result, typ, symbol, msg string) {
	j.events.Publish(contracts.JobEvent{
		RunID:   res.RunID,
		Job:     JobName,
		Type:    typ,
		Symbol:  symbol,
		Done:    res.Stored + res.Skipped + res.Failed,
		Total:   res.Candidates,
		Message: msg,
		Time:    time.Now().UTC(),
	})
}

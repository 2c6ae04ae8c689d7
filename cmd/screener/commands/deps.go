package commands

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/external/fmp"
	"github.com/wonny/dinger/backend/internal/external/yahoo"
	"github.com/wonny/dinger/backend/internal/ingest"
	"github.com/wonny/dinger/backend/internal/screening"
	"github.com/wonny/dinger/backend/internal/store"
	"github.com/wonny/dinger/backend/internal/strategyconfig"
	"github.com/wonny/dinger/backend/pkg/config"
	"github.com/wonny/dinger/backend/pkg/httputil"
	"github.com/wonny/dinger/backend/pkg/logger"
	"github.com/wonny/dinger/backend/pkg/redis"
)

const (
	// cachePrefix namespaces every Redis key written by this binary
	cachePrefix = "dinger"

	fmpTimeout = 60 * time.Second
)

// runtimeDeps bundles what most commands need
type runtimeDeps struct {
	cfg      *config.Config
	log      *logger.Logger
	repo     contracts.MetricsRepository
	redis    *redis.Client
	cache    *redis.Cache
	registry *screening.Registry
	screener *screening.Service
}

// loadConfig loads config and applies the global flags
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if storeBackend != "" {
		cfg.Store.Backend = storeBackend
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	// 표 출력과 섞이지 않도록 로그는 stderr 로
	return cfg, logger.NewWithWriter(cfg, os.Stderr), nil
}

// newRuntime opens the store, the cache and the strategy registry
func newRuntime(ctx context.Context) (*runtimeDeps, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	repo, err := store.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	// Redis 는 선택 사항: 연결 실패 시 캐시 없이 동작
	rc, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache")
		rc = redis.Disabled()
	}
	var cache *redis.Cache
	if rc.Enabled() {
		cache = redis.NewCache(rc, cachePrefix)
	}

	registry := screening.NewRegistry()
	if err := strategyconfig.RegisterDir(registry, cfg.StrategyDir, log); err != nil {
		repo.Close()
		rc.Close()
		return nil, fmt.Errorf("load strategies: %w", err)
	}

	return &runtimeDeps{
		cfg:      cfg,
		log:      log,
		repo:     repo,
		redis:    rc,
		cache:    cache,
		registry: registry,
		screener: screening.NewService(repo, cache, registry, log),
	}, nil
}

// Close releases the store and Redis connections
func (d *runtimeDeps) Close() {
	if err := d.repo.Close(); err != nil {
		d.log.WithError(err).Warn("Failed to close store")
	}
	if err := d.redis.Close(); err != nil {
		d.log.WithError(err).Warn("Failed to close redis")
	}
}

// newIngestJob wires the FMP lister, the Yahoo primary source and the FMP
// fallback into an ingest job writing to the configured store
func (d *runtimeDeps) newIngestJob(opts ingest.Options, events contracts.EventPublisher) *ingest.Job {
	limiter := redis.NewRateLimiter(d.redis, cachePrefix)

	// 전체 종목 목록 응답이 커서 기본 타임아웃보다 길게
	fmpHTTP := httputil.NewWithTimeout(d.cfg, d.log, fmpTimeout).
		WithRateLimiter(limiter, redis.FMPLimit)
	yahooHTTP := httputil.New(d.cfg, d.log).
		WithHeader("User-Agent", d.cfg.Yahoo.UserAgent).
		WithRateLimiter(limiter, redis.YahooLimit)
	if !d.redis.Enabled() {
		// Redis 없이 실행하면 프로세스 내 제한만 적용
		yahooHTTP.WithLimiter(rate.NewLimiter(rate.Every(time.Second), 1))
	}

	fmpClient := fmp.NewClient(fmpHTTP, d.cfg.FMP.APIKey, d.cfg.FMP.BaseURL, d.log)
	yahooClient := yahoo.NewClient(yahooHTTP, d.cfg.Yahoo.BaseURL, d.log)

	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = d.cfg.Ingest.RatePerSecond
	}
	if opts.Workers <= 0 {
		opts.Workers = min(4, runtime.NumCPU())
	}

	return ingest.NewJob(
		fmpClient,
		yahooClient,
		fmpClient,
		d.repo,
		ingest.UniverseFromConfig(d.cfg.Ingest),
		opts,
		d.log,
	).WithEvents(events).WithInvalidator(d.screener)
}

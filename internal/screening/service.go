package screening

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/pkg/logger"
	"github.com/wonny/dinger/backend/pkg/redis"
)

// Result is the response of one screening request
type Result struct {
	Strategy   View                    `json:"strategy"`
	Stocks     []contracts.ScoredStock `json:"stocks"`
	Stats      Stats                   `json:"stats"`
	ScreenedAt time.Time               `json:"screenedAt"`
}

// Service loads the record batch and runs strategies over it
type Service struct {
	repo     contracts.MetricsRepository
	cache    *redis.Cache
	registry *Registry
	logger   *logger.Logger
}

// NewService creates a screening service. cache may be nil.
func NewService(repo contracts.MetricsRepository, cache *redis.Cache, registry *Registry, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		registry: registry,
		logger:   log,
	}
}

// Registry returns the strategy registry
func (s *Service) Registry() *Registry {
	return s.registry
}

// Records returns the full record batch, through the cache when enabled
func (s *Service) Records(ctx context.Context) ([]contracts.StockMetricRecord, error) {
	load := func() (interface{}, error) {
		records, err := s.repo.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		for i := range records {
			records[i].Normalize()
		}
		return records, nil
	}

	var records []contracts.StockMetricRecord
	if s.cache == nil {
		v, err := load()
		if err != nil {
			return nil, fmt.Errorf("load records: %w", err)
		}
		return v.([]contracts.StockMetricRecord), nil
	}

	if err := s.cache.GetOrSet(ctx, redis.StockListKey(), &records, redis.TTLMedium, load); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return records, nil
}

// Get returns one stored record. Single records are cached briefly and are
// not dropped by Invalidate.
func (s *Service) Get(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	load := func() (interface{}, error) {
		rec, err := s.repo.Get(ctx, symbol)
		if err != nil {
			return nil, err
		}
		rec.Normalize()
		return rec, nil
	}
	if s.cache == nil {
		v, err := load()
		if err != nil {
			return nil, err
		}
		return v.(*contracts.StockMetricRecord), nil
	}

	var rec contracts.StockMetricRecord
	err := s.cache.GetOrSet(ctx, redis.StockKey(symbol), &rec, redis.TTLShort, load)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Invalidate drops the cached record batch after writes
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, redis.StockListKey()); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate stock cache")
	}
}

// ScreenByName runs a registered strategy
func (s *Service) ScreenByName(ctx context.Context, name string) (*Result, error) {
	strategy, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, strategy)
}

// ScreenCustom builds an ad-hoc strategy from bounds and runs it
func (s *Service) ScreenCustom(ctx context.Context, bounds map[string]float64) (*Result, error) {
	strategy, err := CustomStrategy(bounds)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, strategy)
}

// Run screens the current batch. A fetch failure is returned as is and the
// engine is not invoked.
func (s *Service) Run(ctx context.Context, strategy *Strategy) (*Result, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	scored, stats := ScreenWithStats(records, strategy)

	s.logger.WithFields(map[string]interface{}{
		"strategy":     strategy.Name(),
		"total_input":  stats.Input,
		"passed":       stats.Passed,
		"eligible":     stats.Eligible,
		"filtered_out": stats.Input - stats.Passed,
		"filters":      stats.Excluded,
		"duration":     time.Since(start),
	}).Info("Screening completed")

	return &Result{
		Strategy:   strategy.View(),
		Stocks:     scored,
		Stats:      stats,
		ScreenedAt: time.Now().UTC(),
	}, nil
}

package screening

import (
	"fmt"

	"github.com/wonny/dinger/backend/internal/contracts"
)

// Defaults shared by presets and strategy files
const (
	DefaultMinMarketCap      = 10_000_000_000
	DefaultEmphasisThreshold = 3
)

// ConfigError reports an invalid strategy definition
type ConfigError struct {
	Strategy string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("strategy %q: %s", e.Strategy, e.Message)
	}
	return fmt.Sprintf("strategy %q: %s: %s", e.Strategy, e.Field, e.Message)
}

// MarketCapGate drops records below a market capitalisation
type MarketCapGate struct {
	Enabled   bool    `json:"enabled"`
	Min       float64 `json:"min"`
	Inclusive bool    `json:"inclusive"` // true: >=, false: >
}

// Passes reports whether a market cap clears the gate
func (g MarketCapGate) Passes(value float64, ok bool) bool {
	if !g.Enabled {
		return true
	}
	if !ok {
		return false
	}
	if g.Inclusive {
		return value >= g.Min
	}
	return value > g.Min
}

// Strategy is an immutable set of threshold rules plus a market-cap gate
// ⭐ SSOT: 스크리닝 전략 (생성 후 변경 불가)
type Strategy struct {
	name              string
	description       string
	rules             []ThresholdRule
	gate              MarketCapGate
	emphasisThreshold int
	minCriteriaPassed int
}

// Option customises a Strategy at construction
type Option func(*Strategy)

// WithDescription sets a human readable description
func WithDescription(desc string) Option {
	return func(s *Strategy) { s.description = desc }
}

// WithMarketCapGate sets the gate minimum and comparator
func WithMarketCapGate(min float64, inclusive bool) Option {
	return func(s *Strategy) {
		s.gate = MarketCapGate{Enabled: true, Min: min, Inclusive: inclusive}
	}
}

// WithoutMarketCapGate disables the market-cap gate
func WithoutMarketCapGate() Option {
	return func(s *Strategy) { s.gate = MarketCapGate{} }
}

// WithEmphasisThreshold sets the score a stock must exceed to be eligible
func WithEmphasisThreshold(n int) Option {
	return func(s *Strategy) { s.emphasisThreshold = n }
}

// WithMinCriteriaPassed drops results scoring below n
func WithMinCriteriaPassed(n int) Option {
	return func(s *Strategy) { s.minCriteriaPassed = n }
}

// NewStrategy validates and builds a strategy. The default gate is
// marketCap >= 10B and the default emphasis threshold is 3.
func NewStrategy(name string, rules []ThresholdRule, opts ...Option) (*Strategy, error) {
	s := &Strategy{
		name:              name,
		rules:             append([]ThresholdRule(nil), rules...),
		gate:              MarketCapGate{Enabled: true, Min: DefaultMinMarketCap, Inclusive: true},
		emphasisThreshold: DefaultEmphasisThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Strategy) validate() error {
	if s.name == "" {
		return &ConfigError{Field: "name", Message: "must not be empty"}
	}
	if len(s.rules) == 0 {
		return &ConfigError{Strategy: s.name, Field: "rules", Message: "at least one rule is required"}
	}
	for i, r := range s.rules {
		if err := r.validate(); err != nil {
			return &ConfigError{Strategy: s.name, Field: fmt.Sprintf("rules[%d]", i), Message: err.Error()}
		}
	}
	if s.gate.Enabled && (!finite(s.gate.Min) || s.gate.Min < 0) {
		return &ConfigError{Strategy: s.name, Field: "market_cap.min", Message: "must be a finite value >= 0"}
	}
	if s.emphasisThreshold < 0 {
		return &ConfigError{Strategy: s.name, Field: "emphasis_threshold", Message: "must be >= 0"}
	}
	if s.minCriteriaPassed < 0 || s.minCriteriaPassed > len(s.rules) {
		return &ConfigError{
			Strategy: s.name,
			Field:    "min_criteria_passed",
			Message:  fmt.Sprintf("must be between 0 and %d", len(s.rules)),
		}
	}
	return nil
}

// Name returns the strategy name
func (s *Strategy) Name() string { return s.name }

// Description returns the strategy description
func (s *Strategy) Description() string { return s.description }

// Rules returns a copy of the ordered rules
func (s *Strategy) Rules() []ThresholdRule {
	return append([]ThresholdRule(nil), s.rules...)
}

// Gate returns the market-cap gate
func (s *Strategy) Gate() MarketCapGate { return s.gate }

// EmphasisThreshold returns the eligibility cutoff
func (s *Strategy) EmphasisThreshold() int { return s.emphasisThreshold }

// MinCriteriaPassed returns the result floor
func (s *Strategy) MinCriteriaPassed() int { return s.minCriteriaPassed }

// requiredMetrics lists metrics a record must carry to be scored
func (s *Strategy) requiredMetrics() []string {
	seen := make(map[string]bool, len(s.rules)+1)
	out := make([]string, 0, len(s.rules)+1)
	if s.gate.Enabled {
		seen[contracts.MetricMarketCap] = true
		out = append(out, contracts.MetricMarketCap)
	}
	for _, r := range s.rules {
		if !seen[r.Metric] {
			seen[r.Metric] = true
			out = append(out, r.Metric)
		}
	}
	return out
}

// View is the JSON shape of a strategy
type View struct {
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Rules             []ThresholdRule `json:"rules"`
	MarketCap         MarketCapGate   `json:"marketCap"`
	EmphasisThreshold int             `json:"emphasisThreshold"`
	MinCriteriaPassed int             `json:"minCriteriaPassed"`
}

// View returns a serialisable copy of the strategy
func (s *Strategy) View() View {
	return View{
		Name:              s.name,
		Description:       s.description,
		Rules:             s.Rules(),
		MarketCap:         s.gate,
		EmphasisThreshold: s.emphasisThreshold,
		MinCriteriaPassed: s.minCriteriaPassed,
	}
}

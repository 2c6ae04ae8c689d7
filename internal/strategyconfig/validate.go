package strategyconfig

import (
	"fmt"
	"math"
	"regexp"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/screening"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var strategyIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if !strategyIDPattern.MatchString(cfg.Meta.StrategyID) {
		return ValidationError{"meta.strategy_id", "must match " + strategyIDPattern.String()}
	}
	if cfg.Meta.StrategyID == screening.CustomStrategyName {
		return ValidationError{"meta.strategy_id", "'custom' is reserved"}
	}

	// === MarketCap ===
	// 게이트가 꺼져 있어도 해시 계산을 위해 유한값이어야 함
	if !finite(cfg.MarketCap.Min) {
		return ValidationError{"market_cap.min", "must be finite"}
	}
	if cfg.MarketCap.IsEnabled() && cfg.MarketCap.Min < 0 {
		return ValidationError{"market_cap.min", "must be >= 0"}
	}

	// === Rules ===
	if len(cfg.Rules) == 0 {
		return ValidationError{"rules", "must not be empty"}
	}
	for i, r := range cfg.Rules {
		if err := validateRule(r, fmt.Sprintf("rules[%d]", i)); err != nil {
			return err
		}
	}

	// === Scoring ===
	if t := cfg.Scoring.EmphasisThreshold; t != nil && *t < 0 {
		return ValidationError{"scoring.emphasis_threshold", "must be >= 0"}
	}
	if n := cfg.Scoring.MinCriteriaPassed; n < 0 || n > len(cfg.Rules) {
		return ValidationError{"scoring.min_criteria_passed", fmt.Sprintf("must be in [0, %d]", len(cfg.Rules))}
	}

	return nil
}

func validateRule(r RuleEntry, field string) error {
	if !contracts.IsMetric(r.Metric) {
		return ValidationError{field + ".metric", fmt.Sprintf("unknown metric %q", r.Metric)}
	}

	cmp, err := screening.ParseComparator(r.Comparator)
	if err != nil {
		return ValidationError{field + ".comparator", err.Error()}
	}

	if cmp == screening.Range {
		if r.Min == nil || r.Max == nil {
			return ValidationError{field, "range requires min and max"}
		}
		if r.Bound != nil {
			return ValidationError{field + ".bound", "not allowed for range"}
		}
		if !finite(*r.Min) || !finite(*r.Max) || *r.Min > *r.Max {
			return ValidationError{field, "min must be <= max"}
		}
		return nil
	}

	if r.Bound == nil {
		return ValidationError{field + ".bound", "required"}
	}
	if r.Min != nil || r.Max != nil {
		return ValidationError{field, "min/max only allowed for range"}
	}
	if !finite(*r.Bound) {
		return ValidationError{field + ".bound", "must be finite"}
	}
	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 강조 기준이 규칙 수 이상이면 eligible 종목이 나올 수 없음
	threshold := screening.DefaultEmphasisThreshold
	if cfg.Scoring.EmphasisThreshold != nil {
		threshold = *cfg.Scoring.EmphasisThreshold
	}
	if threshold >= len(cfg.Rules) {
		warnings = append(warnings, Warning{
			Code:    "UNREACHABLE_EMPHASIS",
			Message: fmt.Sprintf("emphasis_threshold %d >= rule count %d: no stock can be eligible", threshold, len(cfg.Rules)),
		})
	}

	if !cfg.MarketCap.IsEnabled() {
		warnings = append(warnings, Warning{
			Code:    "NO_MARKET_CAP_GATE",
			Message: "market cap gate disabled: small caps included",
		})
	} else if cfg.MarketCap.Min < 1_000_000_000 {
		warnings = append(warnings, Warning{
			Code:    "LOW_MARKET_CAP",
			Message: "market cap min < 1B: thin fundamentals coverage",
		})
	}

	// 같은 지표 중복 규칙
	seen := make(map[string]bool)
	for _, r := range cfg.Rules {
		if seen[r.Metric] {
			warnings = append(warnings, Warning{
				Code:    "DUPLICATE_METRIC",
				Message: fmt.Sprintf("%s has more than one rule", r.Metric),
			})
		}
		seen[r.Metric] = true
	}

	return warnings
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

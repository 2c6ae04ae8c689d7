package screening

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/wonny/dinger/backend/internal/contracts"
)

// Comparator is the pass condition of a ThresholdRule
type Comparator string

const (
	Range       Comparator = "RANGE"        // min <= v <= max
	GreaterThan Comparator = "GREATER_THAN" // v > bound
	LessThan    Comparator = "LESS_THAN"    // v < bound
)

// ParseComparator accepts the canonical names and the short forms used in
// strategy files (range, gt, lt, >, <)
func ParseComparator(s string) (Comparator, error) {
	switch s {
	case "RANGE", "range":
		return Range, nil
	case "GREATER_THAN", "greater_than", "gt", ">":
		return GreaterThan, nil
	case "LESS_THAN", "less_than", "lt", "<":
		return LessThan, nil
	}
	return "", fmt.Errorf("unknown comparator %q", s)
}

// ThresholdRule describes one metric's pass condition
type ThresholdRule struct {
	Metric     string     `json:"metric"`
	Comparator Comparator `json:"comparator"`
	Min        float64    `json:"min"`   // RANGE
	Max        float64    `json:"max"`   // RANGE
	Bound      float64    `json:"bound"` // GREATER_THAN / LESS_THAN
}

// MarshalJSON emits only the fields the comparator uses; a zero bound is
// still written
func (r ThresholdRule) MarshalJSON() ([]byte, error) {
	if r.Comparator == Range {
		return json.Marshal(struct {
			Metric     string     `json:"metric"`
			Comparator Comparator `json:"comparator"`
			Min        float64    `json:"min"`
			Max        float64    `json:"max"`
		}{r.Metric, r.Comparator, r.Min, r.Max})
	}
	return json.Marshal(struct {
		Metric     string     `json:"metric"`
		Comparator Comparator `json:"comparator"`
		Bound      float64    `json:"bound"`
	}{r.Metric, r.Comparator, r.Bound})
}

// InRange builds an inclusive RANGE rule
func InRange(metric string, min, max float64) ThresholdRule {
	return ThresholdRule{Metric: metric, Comparator: Range, Min: min, Max: max}
}

// Above builds a strict GREATER_THAN rule
func Above(metric string, bound float64) ThresholdRule {
	return ThresholdRule{Metric: metric, Comparator: GreaterThan, Bound: bound}
}

// Below builds a strict LESS_THAN rule
func Below(metric string, bound float64) ThresholdRule {
	return ThresholdRule{Metric: metric, Comparator: LessThan, Bound: bound}
}

// Passes evaluates the rule against a value. Missing or NaN values fail.
func (r ThresholdRule) Passes(value float64, ok bool) bool {
	if !ok || math.IsNaN(value) {
		return false
	}

	switch r.Comparator {
	case Range:
		return r.Min <= value && value <= r.Max
	case GreaterThan:
		return value > r.Bound
	case LessThan:
		return value < r.Bound
	}
	return false
}

// String renders the rule like "forwardPE in [10, 40]"
func (r ThresholdRule) String() string {
	switch r.Comparator {
	case Range:
		return fmt.Sprintf("%s in [%g, %g]", r.Metric, r.Min, r.Max)
	case GreaterThan:
		return fmt.Sprintf("%s > %g", r.Metric, r.Bound)
	case LessThan:
		return fmt.Sprintf("%s < %g", r.Metric, r.Bound)
	}
	return fmt.Sprintf("%s ?%s", r.Metric, r.Comparator)
}

func (r ThresholdRule) validate() error {
	if !contracts.IsMetric(r.Metric) {
		return fmt.Errorf("unknown metric %q", r.Metric)
	}

	switch r.Comparator {
	case Range:
		if !finite(r.Min) || !finite(r.Max) {
			return fmt.Errorf("%s: range bounds must be finite", r.Metric)
		}
		if r.Min > r.Max {
			return fmt.Errorf("%s: range min %g > max %g", r.Metric, r.Min, r.Max)
		}
	case GreaterThan, LessThan:
		if !finite(r.Bound) {
			return fmt.Errorf("%s: bound must be finite", r.Metric)
		}
	default:
		return fmt.Errorf("%s: unknown comparator %q", r.Metric, r.Comparator)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

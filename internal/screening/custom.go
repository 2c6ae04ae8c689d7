package screening

import (
	"fmt"
	"math"

	"github.com/wonny/dinger/backend/internal/contracts"
)

// CustomStrategyName is the name given to ad-hoc strategies
const CustomStrategyName = "custom"

// CustomFields lists the fields accepted by CustomStrategy in rule order,
// with the fixed direction of each ("lower is better" → LESS_THAN)
var CustomFields = []struct {
	Metric     string
	Comparator Comparator
}{
	{contracts.MetricForwardPE, LessThan},
	{contracts.MetricTrailingPegRatio, LessThan},
	{contracts.MetricEnterpriseToEbitda, LessThan},
	{contracts.MetricEnterpriseToRevenue, LessThan},
	{contracts.MetricDebtToEquity, LessThan},
	{contracts.MetricOperatingMargins, GreaterThan},
	{contracts.MetricEarningsGrowth, GreaterThan},
	{contracts.MetricRevenueGrowth, GreaterThan},
	{contracts.MetricReturnOnAssets, GreaterThan},
	{contracts.MetricReturnOnEquity, GreaterThan},
	{contracts.MetricGrossMargins, GreaterThan},
	{contracts.MetricEbitdaMargins, GreaterThan},
	{contracts.MetricFreeCashflow, GreaterThan},
}

// CustomDirection returns the fixed comparator of a custom field
func CustomDirection(metric string) (Comparator, bool) {
	for _, f := range CustomFields {
		if f.Metric == metric {
			return f.Comparator, true
		}
	}
	return "", false
}

// CustomStrategy builds an ad-hoc strategy from user supplied bounds, one
// rule per field. Bounds are rounded to 2 decimals, the market-cap gate is
// off and only records passing every rule are returned.
func CustomStrategy(bounds map[string]float64) (*Strategy, error) {
	for metric, bound := range bounds {
		if _, ok := CustomDirection(metric); !ok {
			return nil, &ConfigError{
				Strategy: CustomStrategyName,
				Field:    metric,
				Message:  "not a custom analysis field",
			}
		}
		if !finite(bound) {
			return nil, &ConfigError{
				Strategy: CustomStrategyName,
				Field:    metric,
				Message:  fmt.Sprintf("bound must be finite, got %v", bound),
			}
		}
	}

	rules := make([]ThresholdRule, 0, len(bounds))
	for _, f := range CustomFields {
		bound, ok := bounds[f.Metric]
		if !ok {
			continue
		}
		rules = append(rules, ThresholdRule{
			Metric:     f.Metric,
			Comparator: f.Comparator,
			Bound:      round2(bound),
		})
	}

	return NewStrategy(CustomStrategyName, rules,
		WithDescription("Ad-hoc analysis from user supplied bounds"),
		WithoutMarketCapGate(),
		WithEmphasisThreshold(len(rules)-1),
		WithMinCriteriaPassed(len(rules)),
	)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package screening

import (
	c "github.com/wonny/dinger/backend/internal/contracts"
)

// Preset names
const (
	PresetValuation = "valuation"
	PresetQuality   = "quality"
	PresetCriteria  = "criteria"
	PresetBroad     = "broad"
)

// Presets returns the built-in strategies in display order
func Presets() []*Strategy {
	return []*Strategy{
		mustStrategy(PresetValuation, []ThresholdRule{
			InRange(c.MetricForwardPE, 10, 40),
			Below(c.MetricTrailingPegRatio, 2),
			Below(c.MetricEnterpriseToRevenue, 15),
			Below(c.MetricEnterpriseToEbitda, 30),
			Above(c.MetricFreeCashflow, 0),
		},
			WithDescription("Large caps at a reasonable price"),
			WithMarketCapGate(DefaultMinMarketCap, true),
		),
		mustStrategy(PresetQuality, []ThresholdRule{
			Above(c.MetricGrossMargins, 0.50),
			Above(c.MetricEbitdaMargins, 0.15),
			Above(c.MetricOperatingMargins, 0.10),
			Above(c.MetricEarningsGrowth, 0.10),
			Above(c.MetricRevenueGrowth, 0.05),
			Above(c.MetricReturnOnAssets, 0.05),
			Above(c.MetricReturnOnEquity, 0.20),
			Above(c.MetricFreeCashflow, 0),
		},
			WithDescription("Profitable, growing large caps"),
			WithMarketCapGate(DefaultMinMarketCap, false),
			WithEmphasisThreshold(6),
		),
		mustStrategy(PresetCriteria, []ThresholdRule{
			Above(c.MetricGrossMargins, 0.45),
			Above(c.MetricEbitdaMargins, 0.15),
			Above(c.MetricOperatingMargins, 0.10),
			Above(c.MetricEarningsGrowth, 0.08),
			Above(c.MetricRevenueGrowth, 0.08),
			Above(c.MetricReturnOnAssets, 0.05),
			Above(c.MetricReturnOnEquity, 0.20),
		},
			WithDescription("Published selection criteria"),
			WithMarketCapGate(DefaultMinMarketCap, false),
			WithEmphasisThreshold(5),
		),
		mustStrategy(PresetBroad, []ThresholdRule{
			InRange(c.MetricForwardPE, 0, 200),
			InRange(c.MetricTrailingPegRatio, 0, 10),
		},
			WithDescription("Wide valuation net over large caps"),
			WithMarketCapGate(DefaultMinMarketCap, false),
			WithEmphasisThreshold(1),
		),
	}
}

func mustStrategy(name string, rules []ThresholdRule, opts ...Option) *Strategy {
	s, err := NewStrategy(name, rules, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

package contracts

import (
	"math"
	"time"
)

// StockMetricRecord holds the fundamentals of one ticker
// ⭐ SSOT: 종목 지표 레코드 (API, 저장소, 스크리닝 공통)
//
// Ratios are fractional (0.05 = 5%). A nil metric means the source had no value.
type StockMetricRecord struct {
	Symbol string `json:"symbol" firestore:"symbol"`
	Name   string `json:"name" firestore:"name"`

	MarketCap           *float64 `json:"marketCap" firestore:"marketCap"`
	ForwardPE           *float64 `json:"forwardPE" firestore:"forwardPE"`
	TrailingPegRatio    *float64 `json:"trailingPegRatio" firestore:"trailingPegRatio"`
	EnterpriseToRevenue *float64 `json:"enterpriseToRevenue" firestore:"enterpriseToRevenue"`
	EnterpriseToEbitda  *float64 `json:"enterpriseToEbitda" firestore:"enterpriseToEbitda"`
	FreeCashflow        *float64 `json:"freeCashflow" firestore:"freeCashflow"`
	DebtToEquity        *float64 `json:"debtToEquity" firestore:"debtToEquity"`

	OperatingMargins *float64 `json:"operatingMargins" firestore:"operatingMargins"`
	EarningsGrowth   *float64 `json:"earningsGrowth" firestore:"earningsGrowth"`
	RevenueGrowth    *float64 `json:"revenueGrowth" firestore:"revenueGrowth"`
	ReturnOnAssets   *float64 `json:"returnOnAssets" firestore:"returnOnAssets"`
	ReturnOnEquity   *float64 `json:"returnOnEquity" firestore:"returnOnEquity"`
	GrossMargins     *float64 `json:"grossMargins" firestore:"grossMargins"`
	EbitdaMargins    *float64 `json:"ebitdaMargins" firestore:"ebitdaMargins"`

	UpdatedAt time.Time `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// Metric names (JSON field names of StockMetricRecord)
const (
	MetricMarketCap           = "marketCap"
	MetricForwardPE           = "forwardPE"
	MetricTrailingPegRatio    = "trailingPegRatio"
	MetricEnterpriseToRevenue = "enterpriseToRevenue"
	MetricEnterpriseToEbitda  = "enterpriseToEbitda"
	MetricFreeCashflow        = "freeCashflow"
	MetricDebtToEquity        = "debtToEquity"
	MetricOperatingMargins    = "operatingMargins"
	MetricEarningsGrowth      = "earningsGrowth"
	MetricRevenueGrowth       = "revenueGrowth"
	MetricReturnOnAssets      = "returnOnAssets"
	MetricReturnOnEquity      = "returnOnEquity"
	MetricGrossMargins        = "grossMargins"
	MetricEbitdaMargins       = "ebitdaMargins"
)

// MetricNames lists every numeric metric in column order
var MetricNames = []string{
	MetricMarketCap,
	MetricForwardPE,
	MetricTrailingPegRatio,
	MetricEnterpriseToRevenue,
	MetricEnterpriseToEbitda,
	MetricFreeCashflow,
	MetricDebtToEquity,
	MetricOperatingMargins,
	MetricEarningsGrowth,
	MetricRevenueGrowth,
	MetricReturnOnAssets,
	MetricReturnOnEquity,
	MetricGrossMargins,
	MetricEbitdaMargins,
}

// IsMetric reports whether name is a known metric
func IsMetric(name string) bool {
	for _, m := range MetricNames {
		if m == name {
			return true
		}
	}
	return false
}

// field returns the address of the metric slot, nil for unknown names
func (r *StockMetricRecord) field(name string) **float64 {
	switch name {
	case MetricMarketCap:
		return &r.MarketCap
	case MetricForwardPE:
		return &r.ForwardPE
	case MetricTrailingPegRatio:
		return &r.TrailingPegRatio
	case MetricEnterpriseToRevenue:
		return &r.EnterpriseToRevenue
	case MetricEnterpriseToEbitda:
		return &r.EnterpriseToEbitda
	case MetricFreeCashflow:
		return &r.FreeCashflow
	case MetricDebtToEquity:
		return &r.DebtToEquity
	case MetricOperatingMargins:
		return &r.OperatingMargins
	case MetricEarningsGrowth:
		return &r.EarningsGrowth
	case MetricRevenueGrowth:
		return &r.RevenueGrowth
	case MetricReturnOnAssets:
		return &r.ReturnOnAssets
	case MetricReturnOnEquity:
		return &r.ReturnOnEquity
	case MetricGrossMargins:
		return &r.GrossMargins
	case MetricEbitdaMargins:
		return &r.EbitdaMargins
	}
	return nil
}

// Metric returns the value of a metric; ok is false when it is missing,
// NaN, infinite, or the name is unknown
func (r *StockMetricRecord) Metric(name string) (value float64, ok bool) {
	f := r.field(name)
	if f == nil || *f == nil {
		return 0, false
	}
	v := **f
	if !finite(v) {
		return 0, false
	}
	return v, true
}

// SetMetric stores a metric value; unknown names are ignored and
// NaN or infinite values are stored as missing
func (r *StockMetricRecord) SetMetric(name string, value *float64) {
	if f := r.field(name); f != nil {
		if value != nil && !finite(*value) {
			value = nil
		}
		*f = value
	}
}

// Normalize clears every NaN or infinite metric.
// JSON 인코딩이 불가능한 값이 저장소나 응답으로 새지 않도록 읽기/쓰기 경계에서 호출
func (r *StockMetricRecord) Normalize() {
	for _, m := range MetricNames {
		if f := r.field(m); *f != nil && !finite(**f) {
			*f = nil
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// HasAnyMetric reports whether at least one metric is present
func (r *StockMetricRecord) HasAnyMetric() bool {
	for _, m := range MetricNames {
		if _, ok := r.Metric(m); ok {
			return true
		}
	}
	return false
}

// FillMissing copies metrics from other where r has none
// 우선 소스(r)의 값은 유지, 빈 칸만 보조 소스로 채움
func (r *StockMetricRecord) FillMissing(other *StockMetricRecord) {
	if other == nil {
		return
	}
	if r.Name == "" {
		r.Name = other.Name
	}
	for _, m := range MetricNames {
		if _, ok := r.Metric(m); ok {
			continue
		}
		if v, ok := other.Metric(m); ok {
			r.SetMetric(m, Float(v))
		}
	}
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

package strategyconfig

// Config는 YAML 로 정의한 스크리닝 전략 하나
type Config struct {
	Meta      Meta        `yaml:"meta" json:"meta"`
	MarketCap MarketCap   `yaml:"market_cap" json:"market_cap"`
	Scoring   Scoring     `yaml:"scoring" json:"scoring"`
	Rules     []RuleEntry `yaml:"rules" json:"rules"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID  string `yaml:"strategy_id" json:"strategy_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// MarketCap 시가총액 게이트 (enabled 생략 시 활성)
type MarketCap struct {
	Enabled   *bool   `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Min       float64 `yaml:"min" json:"min"`
	Inclusive *bool   `yaml:"inclusive,omitempty" json:"inclusive,omitempty"` // 생략 시 >=
}

// IsEnabled reports whether the gate applies
func (m MarketCap) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// IsInclusive reports whether the gate uses >=
func (m MarketCap) IsInclusive() bool {
	return m.Inclusive == nil || *m.Inclusive
}

// Scoring 점수/강조 기준
type Scoring struct {
	EmphasisThreshold *int `yaml:"emphasis_threshold,omitempty" json:"emphasis_threshold,omitempty"` // 생략 시 3
	MinCriteriaPassed int  `yaml:"min_criteria_passed" json:"min_criteria_passed"`
}

// RuleEntry 지표별 통과 조건
type RuleEntry struct {
	Metric     string   `yaml:"metric" json:"metric"`
	Comparator string   `yaml:"comparator" json:"comparator"` // range | gt | lt
	Min        *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max        *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Bound      *float64 `yaml:"bound,omitempty" json:"bound,omitempty"`
}

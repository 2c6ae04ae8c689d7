package contracts

// ScoredStock is a screened record with its score
// ⭐ SSOT: 스크리닝 결과 (요청마다 재계산, 저장하지 않음)
type ScoredStock struct {
	StockMetricRecord

	CriteriaPassed int          `json:"criteriaPassed"`
	Eligible       bool         `json:"eligible"` // criteriaPassed > emphasis threshold
	Rules          []RuleResult `json:"rules"`
}

// RuleResult is the outcome of one threshold rule for one record
type RuleResult struct {
	Metric     string  `json:"metric"`
	Comparator string  `json:"comparator"`
	Value      float64 `json:"value"`
	Passed     bool    `json:"passed"`
}

// FailedRules returns the metrics whose rule did not pass
func (s *ScoredStock) FailedRules() []string {
	failed := make([]string, 0)
	for _, r := range s.Rules {
		if !r.Passed {
			failed = append(failed, r.Metric)
		}
	}
	return failed
}

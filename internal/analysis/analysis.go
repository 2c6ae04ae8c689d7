package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/pkg/logger"
	"github.com/wonny/dinger/backend/pkg/redis"
)

// ErrAnalysisUnavailable is returned when no generator is configured
var ErrAnalysisUnavailable = errors.New("company analysis unavailable")

// Analysis is a three-part company write-up
type Analysis struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Overview    string    `json:"overview"`
	Qualities   string    `json:"qualities"`
	Risks       string    `json:"risks"`
	Text        string    `json:"text"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// RecordGetter loads the stored record for a symbol
type RecordGetter interface {
	Get(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error)
}

// Service produces cached company analyses
// ⭐ SSOT: AI 기업 분석 (24시간 캐시)
type Service struct {
	gen     Generator
	records RecordGetter
	cache   *redis.Cache
	timeout time.Duration
	logger  *logger.Logger
}

// NewService creates the analysis service. gen may be nil, in which case
// Analyze returns ErrAnalysisUnavailable.
func NewService(gen Generator, records RecordGetter, cache *redis.Cache, timeout time.Duration, log *logger.Logger) *Service {
	return &Service{
		gen:     gen,
		records: records,
		cache:   cache,
		timeout: timeout,
		logger:  log.WithField("module", "analysis"),
	}
}

// Available reports whether a generator is configured
func (s *Service) Available() bool {
	return s.gen != nil
}

// Analyze returns the analysis of a stored symbol
func (s *Service) Analyze(ctx context.Context, symbol string) (*Analysis, error) {
	if s.gen == nil {
		return nil, ErrAnalysisUnavailable
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	rec, err := s.records.Get(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", symbol, err)
	}

	load := func() (interface{}, error) {
		return s.generate(ctx, rec)
	}

	var out Analysis
	if s.cache == nil {
		v, err := load()
		if err != nil {
			return nil, err
		}
		return v.(*Analysis), nil
	}
	if err := s.cache.GetOrSet(ctx, redis.AnalysisKey(symbol), &out, redis.TTLDaily, load); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) generate(ctx context.Context, rec *contracts.StockMetricRecord) (*Analysis, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	name := rec.Name
	if name == "" {
		name = rec.Symbol
	}

	start := time.Now()
	text, err := s.gen.Generate(ctx, Prompt(name, rec.Symbol))
	if err != nil {
		s.logger.WithError(err).WithField("symbol", rec.Symbol).Error("Analysis generation failed")
		return nil, fmt.Errorf("analyze %s: %w", rec.Symbol, err)
	}

	a := &Analysis{
		Symbol:      rec.Symbol,
		Name:        name,
		Text:        strings.TrimSpace(text),
		Model:       s.gen.Model(),
		GeneratedAt: time.Now().UTC(),
	}
	a.Overview, a.Qualities, a.Risks = splitSections(a.Text)

	s.logger.WithFields(map[string]interface{}{
		"symbol":   rec.Symbol,
		"model":    a.Model,
		"duration": time.Since(start),
	}).Info("Analysis generated")
	return a, nil
}

// Prompt builds the three-paragraph analysis request
func Prompt(companyName, ticker string) string {
	return fmt.Sprintf(`Analyze the company %s (Ticker: %s). Provide the analysis in exactly three distinct paragraphs:

Write Company Overview then a brief, one-paragraph overview of the company. What is its primary business and what does it sell?

Then a newline for spacing between paragraphs.

Write Qualities then a bullish case for the company. What are its core strengths, competitive advantages, and potential future growth catalysts?

Then a newline for spacing between paragraphs.

Write Risks then a bearish case for the company. What are the primary risks, challenges, and weaknesses it faces?`, companyName, ticker)
}

var headingRe = regexp.MustCompile(`(?im)^[\s#*]*(company overview|qualities|risks)[\s*:]*`)

// splitSections cuts the response at its headings. Text without
// headings is split by blank lines.
func splitSections(text string) (overview, qualities, risks string) {
	locs := headingRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) > 0 {
		sections := map[string]string{}
		for i, loc := range locs {
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			key := strings.ToLower(text[loc[2]:loc[3]])
			sections[key] = strings.TrimSpace(text[loc[1]:end])
		}
		return sections["company overview"], sections["qualities"], sections["risks"]
	}

	parts := make([]string, 0, 3)
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], strings.Join(parts[2:], "\n\n")
}

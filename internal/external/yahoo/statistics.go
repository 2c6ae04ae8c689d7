package yahoo

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/dinger/backend/internal/contracts"
)

// statField maps a key-statistics row label (prefix match) to a metric
type statField struct {
	label   string
	metric  string
	percent bool // "30.5%" → 0.305
}

var statFields = []statField{
	{"Market Cap", contracts.MetricMarketCap, false},
	{"Forward P/E", contracts.MetricForwardPE, false},
	{"PEG Ratio", contracts.MetricTrailingPegRatio, false},
	{"Enterprise Value/Revenue", contracts.MetricEnterpriseToRevenue, false},
	{"Enterprise Value/EBITDA", contracts.MetricEnterpriseToEbitda, false},
	{"Operating Margin", contracts.MetricOperatingMargins, true},
	{"Return on Assets", contracts.MetricReturnOnAssets, true},
	{"Return on Equity", contracts.MetricReturnOnEquity, true},
	{"Quarterly Revenue Growth", contracts.MetricRevenueGrowth, true},
	{"Quarterly Earnings Growth", contracts.MetricEarningsGrowth, true},
	// Yahoo 의 debtToEquity 는 퍼센트 수치 그대로 (151.86)
	{"Total Debt/Equity", contracts.MetricDebtToEquity, false},
	{"Levered Free Cash Flow", contracts.MetricFreeCashflow, false},
}

var footnoteRe = regexp.MustCompile(`\s+\d+$`)

// KeyStatistics scrapes the key-statistics page of a symbol
// ⭐ SSOT: Yahoo key-statistics 파싱은 여기서만
func (c *Client) KeyStatistics(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	html, err := c.fetchHTML(ctx, statisticsPath(symbol))
	if err != nil {
		return nil, fmt.Errorf("key statistics %s: %w", symbol, err)
	}

	rec, err := parseStatistics(html, symbol)
	if err != nil {
		return nil, fmt.Errorf("key statistics %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"has_any": rec.HasAnyMetric(),
	}).Debug("Fetched key statistics")
	return rec, nil
}

// parseStatistics reads label/value rows from every table on the page
func parseStatistics(html, symbol string) (*contracts.StockMetricRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	rows := make(map[string]string)
	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := footnoteRe.ReplaceAllString(strings.TrimSpace(cells.First().Text()), "")
		// 첫 값 컬럼 = 최신값
		rows[label] = strings.TrimSpace(cells.Eq(1).Text())
	})
	if len(rows) == 0 {
		return nil, fmt.Errorf("no statistics table found")
	}

	rec := &contracts.StockMetricRecord{Symbol: symbol}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		rec.Name = strings.TrimSpace(strings.Split(h1, "(")[0])
	}

	for _, f := range statFields {
		raw, ok := lookup(rows, f.label)
		if !ok {
			continue
		}
		v, ok := parseNumber(raw)
		if !ok {
			continue
		}
		if f.percent {
			v /= 100
		}
		rec.SetMetric(f.metric, contracts.Float(v))
	}

	// 마진 = 항목 / 매출
	if revenue, ok := lookupNumber(rows, "Revenue"); ok && revenue != 0 {
		if gp, ok := lookupNumber(rows, "Gross Profit"); ok {
			rec.GrossMargins = contracts.Float(gp / revenue)
		}
		if ebitda, ok := lookupNumber(rows, "EBITDA"); ok {
			rec.EbitdaMargins = contracts.Float(ebitda / revenue)
		}
	}

	return rec, nil
}

func lookup(rows map[string]string, prefix string) (string, bool) {
	if v, ok := rows[prefix]; ok {
		return v, true
	}
	for label, v := range rows {
		if strings.HasPrefix(label, prefix+" (") {
			return v, true
		}
	}
	return "", false
}

func lookupNumber(rows map[string]string, prefix string) (float64, bool) {
	raw, ok := lookup(rows, prefix)
	if !ok {
		return 0, false
	}
	return parseNumber(raw)
}

var suffixes = map[byte]float64{
	'k': 1e3, 'K': 1e3,
	'M': 1e6,
	'B': 1e9,
	'T': 1e12,
}

// parseNumber parses "1,234.5", "-3.2%", "3.45T", "N/A"
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" || s == "N/A" || s == "--" || s == "-" {
		return 0, false
	}

	mult := 1.0
	if m, ok := suffixes[s[len(s)-1]]; ok {
		mult = m
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	v *= mult
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

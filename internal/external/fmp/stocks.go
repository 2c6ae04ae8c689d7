package fmp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/dinger/backend/internal/contracts"
)

// ListedStock is one entry of the FMP symbol list
type ListedStock struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Exchange          string  `json:"exchange"`
	ExchangeShortName string  `json:"exchangeShortName"`
	Type              string  `json:"type"`
}

// StockList returns every symbol FMP knows about
func (c *Client) StockList(ctx context.Context) ([]ListedStock, error) {
	var out []ListedStock
	if err := c.getJSON(ctx, "/stock/list", nil, &out); err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(out)).Info("Fetched FMP stock list")
	return out, nil
}

// keyMetricsTTM is the subset of /key-metrics-ttm we use
type keyMetricsTTM struct {
	MarketCap           *float64 `json:"marketCapTTM"`
	EnterpriseToEbitda  *float64 `json:"enterpriseValueOverEBITDATTM"`
	EnterpriseToRevenue *float64 `json:"evToSalesTTM"`
	DebtToEquity        *float64 `json:"debtToEquityTTM"`
	ReturnOnEquity      *float64 `json:"roeTTM"`
}

// ratiosTTM is the subset of /ratios-ttm we use
type ratiosTTM struct {
	PEG             *float64 `json:"priceEarningsToGrowthRatioTTM"`
	OperatingMargin *float64 `json:"operatingProfitMarginTTM"`
	GrossMargin     *float64 `json:"grossProfitMarginTTM"`
	ReturnOnAssets  *float64 `json:"returnOnAssetsTTM"`
	ReturnOnEquity  *float64 `json:"returnOnEquityTTM"`
	PriceToFCF      *float64 `json:"priceToFreeCashFlowsRatioTTM"`
	DebtEquityRatio *float64 `json:"debtEquityRatioTTM"`
}

// KeyMetrics builds a partial record from key-metrics-ttm and ratios-ttm.
// Either endpoint may fail; the call errors only when both do.
func (c *Client) KeyMetrics(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	path := "/" + url.PathEscape(strings.ToUpper(symbol))

	var metrics []keyMetricsTTM
	metricsErr := c.getJSON(ctx, "/key-metrics-ttm"+path, nil, &metrics)

	var ratios []ratiosTTM
	ratiosErr := c.getJSON(ctx, "/ratios-ttm"+path, nil, &ratios)

	if metricsErr != nil && ratiosErr != nil {
		return nil, fmt.Errorf("key metrics %s: %w", symbol, metricsErr)
	}

	rec := &contracts.StockMetricRecord{Symbol: symbol}
	if len(metrics) > 0 {
		m := metrics[0]
		rec.MarketCap = m.MarketCap
		rec.EnterpriseToEbitda = m.EnterpriseToEbitda
		rec.EnterpriseToRevenue = m.EnterpriseToRevenue
		rec.ReturnOnEquity = m.ReturnOnEquity
		// FMP 는 비율(1.5), 저장 단위는 퍼센트(150)
		if m.DebtToEquity != nil {
			rec.DebtToEquity = contracts.Float(*m.DebtToEquity * 100)
		}
	}
	if len(ratios) > 0 {
		r := ratios[0]
		rec.TrailingPegRatio = r.PEG
		rec.OperatingMargins = r.OperatingMargin
		rec.GrossMargins = r.GrossMargin
		rec.ReturnOnAssets = r.ReturnOnAssets
		if rec.ReturnOnEquity == nil {
			rec.ReturnOnEquity = r.ReturnOnEquity
		}
		if rec.DebtToEquity == nil && r.DebtEquityRatio != nil {
			rec.DebtToEquity = contracts.Float(*r.DebtEquityRatio * 100)
		}
		// FCF = 시가총액 / P/FCF
		if rec.MarketCap != nil && r.PriceToFCF != nil && *r.PriceToFCF != 0 {
			rec.FreeCashflow = contracts.Float(*rec.MarketCap / *r.PriceToFCF)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"has_any": rec.HasAnyMetric(),
	}).Debug("Fetched FMP key metrics")
	return rec, nil
}

package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/pkg/httputil"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// QuoteFunc fetches an equity quote (finance-go equity.Get by default)
type QuoteFunc func(symbol string) (*finance.Equity, error)

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	quote      QuoteFunc
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		quote:      equity.Get,
	}
}

// WithQuoteFunc replaces the quote source
func (c *Client) WithQuoteFunc(fn QuoteFunc) *Client {
	c.quote = fn
	return c
}

// Quote returns name, market cap and forward P/E from the quote endpoint
func (c *Client) Quote(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := c.quote(symbol)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if q == nil {
		return nil, fmt.Errorf("quote %s: empty response", symbol)
	}

	rec := &contracts.StockMetricRecord{
		Symbol: symbol,
		Name:   q.ShortName,
	}
	if rec.Name == "" {
		rec.Name = q.LongName
	}
	// 0 은 "값 없음"으로 취급
	if q.MarketCap > 0 {
		rec.MarketCap = contracts.Float(float64(q.MarketCap))
	}
	if q.ForwardPE != 0 {
		rec.ForwardPE = contracts.Float(q.ForwardPE)
	}
	return rec, nil
}

// Fetch merges the key-statistics page with the quote. Statistics win;
// the quote fills what the page lacks. Fails only when both sources fail.
func (c *Client) Fetch(ctx context.Context, symbol string) (*contracts.StockMetricRecord, error) {
	stats, statsErr := c.KeyStatistics(ctx, symbol)
	quote, quoteErr := c.Quote(ctx, symbol)

	switch {
	case statsErr != nil && quoteErr != nil:
		return nil, errors.Join(statsErr, quoteErr)
	case statsErr != nil:
		c.logger.WithError(statsErr).WithField("symbol", symbol).Debug("Key statistics unavailable, using quote only")
		return quote, nil
	case quoteErr != nil:
		c.logger.WithError(quoteErr).WithField("symbol", symbol).Debug("Quote unavailable, using key statistics only")
		return stats, nil
	}

	stats.FillMissing(quote)
	return stats, nil
}

// fetchHTML fetches a Yahoo Finance page
func (c *Client) fetchHTML(ctx context.Context, path string) (string, error) {
	resp, err := c.httpClient.Get(ctx, c.baseURL+path)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

func statisticsPath(symbol string) string {
	return fmt.Sprintf("/quote/%s/key-statistics", url.PathEscape(symbol))
}

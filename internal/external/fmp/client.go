package fmp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/dinger/backend/pkg/httputil"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// ErrMissingAPIKey is returned when FMP_API_KEY is not configured
var ErrMissingAPIKey = errors.New("fmp: api key not configured")

// Client handles communication with the Financial Modeling Prep API
// ⭐ SSOT: FMP API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a new FMP API client
func NewClient(httpClient *httputil.Client, apiKey, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// getJSON calls an /api/v3 endpoint with the api key attached
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	fullURL := fmt.Sprintf("%s/api/v3%s?%s", c.baseURL, path, params.Encode())
	if err := c.httpClient.GetJSON(ctx, fullURL, out); err != nil {
		return fmt.Errorf("fmp %s: %w", path, err)
	}
	return nil
}

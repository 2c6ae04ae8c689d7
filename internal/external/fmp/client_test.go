package fmp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dinger/backend/pkg/config"
	"github.com/wonny/dinger/backend/pkg/httputil"
	"github.com/wonny/dinger/backend/pkg/logger"
)

func newTestClient(baseURL, apiKey string) *Client {
	cfg := &config.Config{Env: "test", LogLevel: "error"}
	hc := httputil.New(cfg, logger.Nop()).DisableRetry()
	return NewClient(hc, apiKey, baseURL, logger.Nop())
}

func TestStockList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/stock/list", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"symbol":"AAPL","name":"Apple Inc.","price":190.5,"exchange":"NASDAQ Global Select","exchangeShortName":"NASDAQ","type":"stock"},
			{"symbol":"SPY","name":"SPDR S&P 500","price":500,"exchange":"New York Stock Exchange Arca","exchangeShortName":"AMEX","type":"etf"}
		]`))
	}))
	defer srv.Close()

	list, err := newTestClient(srv.URL, "secret").StockList(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AAPL", list[0].Symbol)
	assert.Equal(t, 190.5, list[0].Price)
	assert.Equal(t, "NASDAQ", list[0].ExchangeShortName)
	assert.Equal(t, "etf", list[1].Type)
}

func TestMissingAPIKey(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1", "").StockList(context.Background())
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestKeyMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v3/key-metrics-ttm/MSFT":
			_, _ = w.Write([]byte(`[{"marketCapTTM":3000000000000,"enterpriseValueOverEBITDATTM":24.5,"evToSalesTTM":12.1,"debtToEquityTTM":0.35,"roeTTM":null}]`))
		case "/api/v3/ratios-ttm/MSFT":
			_, _ = w.Write([]byte(`[{"priceEarningsToGrowthRatioTTM":2.1,"operatingProfitMarginTTM":0.44,"grossProfitMarginTTM":0.69,"returnOnAssetsTTM":0.18,"returnOnEquityTTM":0.36,"priceToFreeCashFlowsRatioTTM":40}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	rec, err := newTestClient(srv.URL, "k").KeyMetrics(context.Background(), "msft")
	require.NoError(t, err)

	assert.Equal(t, "msft", rec.Symbol)
	require.NotNil(t, rec.MarketCap)
	assert.Equal(t, 3e12, *rec.MarketCap)
	require.NotNil(t, rec.DebtToEquity)
	assert.InDelta(t, 35.0, *rec.DebtToEquity, 1e-9, "ratio converted to percent")
	require.NotNil(t, rec.ReturnOnEquity)
	assert.Equal(t, 0.36, *rec.ReturnOnEquity, "ratios fill null roe")
	require.NotNil(t, rec.FreeCashflow)
	assert.InDelta(t, 75e9, *rec.FreeCashflow, 1)
	require.NotNil(t, rec.TrailingPegRatio)
	assert.Equal(t, 2.1, *rec.TrailingPegRatio)

	assert.Nil(t, rec.ForwardPE)
	assert.Nil(t, rec.EarningsGrowth)
}

func TestKeyMetrics_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/ratios-ttm/IBM" {
			_, _ = w.Write([]byte(`[{"operatingProfitMarginTTM":0.15}]`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	rec, err := newTestClient(srv.URL, "k").KeyMetrics(context.Background(), "IBM")
	require.NoError(t, err)
	require.NotNil(t, rec.OperatingMargins)
	assert.Equal(t, 0.15, *rec.OperatingMargins)
	assert.Nil(t, rec.MarketCap)
}

func TestKeyMetrics_BothFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "k").KeyMetrics(context.Background(), "IBM")
	require.Error(t, err)

	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/dinger/backend/internal/external/fmp"
	"github.com/wonny/dinger/backend/pkg/config"
)

func listed(sym, exchange, typ string, price float64) fmp.ListedStock {
	return fmp.ListedStock{Symbol: sym, Name: sym + " Inc.", ExchangeShortName: exchange, Type: typ, Price: price}
}

func symbols(list []fmp.ListedStock) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.Symbol)
	}
	return out
}

func TestUniverseFilter(t *testing.T) {
	list := []fmp.ListedStock{
		listed("AAPL", "NASDAQ", "stock", 190),
		listed("SPY", "AMEX", "etf", 500),
		listed("QQQ", "NASDAQ", "etf", 400),
		listed("PENY", "NYSE", "stock", 5),
		listed("EDGE", "NYSE", "stock", 20),
		listed("BRK-B", "NYSE", "stock", 400),
		listed("MSFT", "nasdaq", "Stock", 410),
		listed("AAPL", "NASDAQ", "stock", 190),
		listed("KO", "NYSE", "stock", 60),
		listed("", "NYSE", "stock", 60),
	}

	u := Universe{
		Exchanges:       []string{"NYSE", "NASDAQ"},
		MinPrice:        20,
		MaxSymbolLength: 4,
		SkipExisting:    true,
	}
	existing := map[string]struct{}{"KO": {}}

	got := u.Filter(list, existing)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols(got))
}

func TestUniverseFilter_NoLimits(t *testing.T) {
	list := []fmp.ListedStock{
		listed("BRK-B", "NYSE", "stock", 400),
		listed("KO", "NYSE", "stock", 60),
		listed("TSM", "OTC", "stock", 100),
	}

	u := Universe{MinPrice: 0}
	got := u.Filter(list, map[string]struct{}{"KO": {}})
	assert.Equal(t, []string{"BRK-B", "KO", "TSM"}, symbols(got), "empty exchange list allows all, existing kept when not skipping")
}

func TestUniverseFromConfig(t *testing.T) {
	u := UniverseFromConfig(config.IngestConfig{
		MinPrice:        10,
		MaxSymbolLength: 4,
		Exchanges:       []string{"NYSE"},
		SkipExisting:    true,
	})
	assert.Equal(t, 10.0, u.MinPrice)
	assert.Equal(t, 4, u.MaxSymbolLength)
	assert.Equal(t, []string{"NYSE"}, u.Exchanges)
	assert.True(t, u.SkipExisting)
}

package ingest

import (
	"strings"

	"github.com/wonny/dinger/backend/internal/external/fmp"
	"github.com/wonny/dinger/backend/pkg/config"
)

// Universe decides which listed tickers are worth fetching
type Universe struct {
	Exchanges       []string // exchangeShortName allow-list
	MinPrice        float64  // exclusive
	MaxSymbolLength int      // 0 = unlimited
	SkipExisting    bool
}

// UniverseFromConfig builds the filter from INGEST_* settings
func UniverseFromConfig(cfg config.IngestConfig) Universe {
	return Universe{
		Exchanges:       cfg.Exchanges,
		MinPrice:        cfg.MinPrice,
		MaxSymbolLength: cfg.MaxSymbolLength,
		SkipExisting:    cfg.SkipExisting,
	}
}

// Filter returns the candidates in list order, each symbol once
func (u Universe) Filter(list []fmp.ListedStock, existing map[string]struct{}) []fmp.ListedStock {
	allowed := make(map[string]bool, len(u.Exchanges))
	for _, ex := range u.Exchanges {
		allowed[strings.ToUpper(ex)] = true
	}

	seen := make(map[string]bool)
	out := make([]fmp.ListedStock, 0)
	for _, s := range list {
		sym := strings.TrimSpace(s.Symbol)
		if sym == "" || seen[sym] {
			continue
		}
		if len(allowed) > 0 && !allowed[strings.ToUpper(s.ExchangeShortName)] {
			continue
		}
		if !strings.EqualFold(s.Type, "stock") {
			continue
		}
		if s.Price <= u.MinPrice {
			continue
		}
		if u.MaxSymbolLength > 0 && len(sym) > u.MaxSymbolLength {
			continue
		}
		if u.SkipExisting {
			if _, ok := existing[sym]; ok {
				continue
			}
		}

		seen[sym] = true
		s.Symbol = sym
		out = append(out, s)
	}
	return out
}

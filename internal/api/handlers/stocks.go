package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/dinger/backend/internal/analysis"
	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/screening"
	"github.com/wonny/dinger/backend/internal/search"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// StockHandler handles stock record API endpoints
// ⭐ SSOT: 종목 API 핸들러는 이 구조체에서만
type StockHandler struct {
	screening *screening.Service
	records   analysis.RecordGetter
	index     *search.Index
	analysis  *analysis.Service
	logger    *logger.Logger
}

// NewStockHandler creates a new stock handler. index and analyzer may be nil.
func NewStockHandler(svc *screening.Service, records analysis.RecordGetter, index *search.Index, analyzer *analysis.Service, log *logger.Logger) *StockHandler {
	return &StockHandler{
		screening: svc,
		records:   records,
		index:     index,
		analysis:  analyzer,
		logger:    log,
	}
}

// List returns every stored record
// GET /api/stocks
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.screening.Records(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load stock records")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stocks")
		return
	}
	if records == nil {
		records = []contracts.StockMetricRecord{}
	}

	respondData(w, http.StatusOK, records)
}

// Get returns one record
// GET /api/stocks/{symbol}
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	rec, err := h.records.Get(r.Context(), symbol)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "stock not found: "+symbol)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get stock")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stock")
		return
	}

	respondData(w, http.StatusOK, rec)
}

// Search finds tickers by symbol or company name
// GET /api/stocks/search?q=app&limit=10
func (h *StockHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		respondError(w, http.StatusServiceUnavailable, "search is not available")
		return
	}

	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	hits, err := h.index.Search(q, queryInt(r, "limit", search.DefaultLimit))
	if err != nil {
		h.logger.WithError(err).WithField("q", q).Error("Search failed")
		respondError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	respondData(w, http.StatusOK, hits)
}

// Analysis returns the AI company write-up
// GET /api/stocks/{symbol}/analysis
func (h *StockHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if h.analysis == nil {
		respondError(w, http.StatusServiceUnavailable, analysis.ErrAnalysisUnavailable.Error())
		return
	}

	a, err := h.analysis.Analyze(r.Context(), symbol)
	switch {
	case errors.Is(err, analysis.ErrAnalysisUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, "stock not found: "+symbol)
		return
	case err != nil:
		h.logger.WithError(err).WithField("symbol", symbol).Error("Analysis failed")
		respondError(w, http.StatusBadGateway, "Could not fetch analysis")
		return
	}

	respondData(w, http.StatusOK, a)
}

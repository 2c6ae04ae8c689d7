package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/screening"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// ScreeningHandler handles strategy screening endpoints
// ⭐ SSOT: 스크리닝 API 핸들러
type ScreeningHandler struct {
	svc      *screening.Service
	validate *validator.Validate
	logger   *logger.Logger
}

// NewScreeningHandler creates a new screening handler
func NewScreeningHandler(svc *screening.Service, log *logger.Logger) *ScreeningHandler {
	return &ScreeningHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   log,
	}
}

// CustomRequest is the body of POST /api/screen/custom
type CustomRequest struct {
	Criteria map[string]float64 `json:"criteria" validate:"required,min=1,dive,keys,required,endkeys"`
	Limit    int                `json:"limit" validate:"omitempty,min=1,max=1000"`
}

// ScreenResponse is a screening result after view options
type ScreenResponse struct {
	*screening.Result
	Returned int `json:"returned"`
}

// ListStrategies returns every registered strategy with its rules
// GET /api/strategies
func (h *ScreeningHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies := h.svc.Registry().List()
	views := make([]screening.View, 0, len(strategies))
	for _, s := range strategies {
		views = append(views, s.View())
	}
	respondData(w, http.StatusOK, views)
}

// Screen runs a registered strategy
// GET /api/screen/{strategy}?limit=50&eligible=true
func (h *ScreeningHandler) Screen(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["strategy"]

	res, err := h.svc.ScreenByName(r.Context(), name)
	if errors.Is(err, screening.ErrUnknownStrategy) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("strategy", name).Error("Screening failed")
		respondError(w, http.StatusInternalServerError, "Screening failed")
		return
	}

	respondData(w, http.StatusOK, shape(res, queryInt(r, "limit", 0), r.URL.Query().Get("eligible") == "true"))
}

// Custom runs an ad-hoc strategy built from user bounds
// POST /api/screen/custom {"criteria": {"forwardPE": 20}}
func (h *ScreeningHandler) Custom(w http.ResponseWriter, r *http.Request) {
	var req CustomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	res, err := h.svc.ScreenCustom(r.Context(), req.Criteria)
	var cfgErr *screening.ConfigError
	if errors.As(err, &cfgErr) {
		respondError(w, http.StatusBadRequest, cfgErr.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Custom screening failed")
		respondError(w, http.StatusInternalServerError, "Screening failed")
		return
	}

	respondData(w, http.StatusOK, shape(res, req.Limit, false))
}

// shape applies the eligible filter and limit without touching the order
func shape(res *screening.Result, limit int, eligibleOnly bool) ScreenResponse {
	stocks := res.Stocks
	if eligibleOnly {
		filtered := make([]contracts.ScoredStock, 0, len(stocks))
		for _, s := range stocks {
			if s.Eligible {
				filtered = append(filtered, s)
			}
		}
		stocks = filtered
	}
	if limit > 0 && len(stocks) > limit {
		stocks = stocks[:limit]
	}
	if stocks == nil {
		stocks = []contracts.ScoredStock{}
	}

	out := *res
	out.Stocks = stocks
	return ScreenResponse{Result: &out, Returned: len(stocks)}
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/dinger/backend/internal/api/handlers"
	"github.com/wonny/dinger/backend/internal/api/ws"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// Handlers groups everything the router dispatches to
type Handlers struct {
	Stocks    *handlers.StockHandler
	Screening *handlers.ScreeningHandler
	Jobs      *handlers.JobHandler // nil without a scheduler
	Hub       *ws.Hub              // nil disables /ws/jobs
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, corsOrigins []string, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Stocks (search 는 {symbol} 보다 먼저 등록)
	api.HandleFunc("/stocks", h.Stocks.List).Methods("GET")
	api.HandleFunc("/stocks/search", h.Stocks.Search).Methods("GET")
	api.HandleFunc("/stocks/{symbol}", h.Stocks.Get).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/analysis", h.Stocks.Analysis).Methods("GET")

	// Screening (custom 은 {strategy} 와 메서드로 구분)
	api.HandleFunc("/strategies", h.Screening.ListStrategies).Methods("GET")
	api.HandleFunc("/screen/custom", h.Screening.Custom).Methods("POST")
	api.HandleFunc("/screen/{strategy}", h.Screening.Screen).Methods("GET")

	// Jobs
	if h.Jobs != nil {
		api.HandleFunc("/jobs", h.Jobs.Stats).Methods("GET")
		api.HandleFunc("/jobs/ingest", h.Jobs.TriggerIngest).Methods("POST")
	}
	if h.Hub != nil {
		r.Handle("/ws/jobs", h.Hub).Methods("GET")
	}

	// Apply middleware
	r.Use(recoveryMiddleware(log))
	r.Use(loggingMiddleware(log))
	r.Use(corsMiddleware(corsOrigins))

	// CORS preflight 는 라우트가 없어도 응답
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "dinger-api",
	})
}

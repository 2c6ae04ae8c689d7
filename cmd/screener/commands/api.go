package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dinger/backend/internal/analysis"
	"github.com/wonny/dinger/backend/internal/api"
	"github.com/wonny/dinger/backend/internal/api/handlers"
	"github.com/wonny/dinger/backend/internal/api/ws"
	"github.com/wonny/dinger/backend/internal/ingest"
	"github.com/wonny/dinger/backend/internal/scheduler"
	"github.com/wonny/dinger/backend/internal/scheduler/jobs"
	"github.com/wonny/dinger/backend/internal/search"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 수집(ingest) 및 검색 색인 작업 스케줄링
- 작업 진행 상황 WebSocket 브로드캐스트

Endpoints:
  GET  /health                        - Health check
  GET  /api/stocks                    - 전체 종목 지표
  GET  /api/stocks/search?q=          - 종목 검색
  GET  /api/stocks/{symbol}           - 단일 종목
  GET  /api/stocks/{symbol}/analysis  - Gemini 기업 분석
  GET  /api/strategies                - 전략 목록
  GET  /api/screen/{strategy}         - 전략 스크리닝
  POST /api/screen/custom             - 사용자 기준 스크리닝
  GET  /api/jobs                      - 작업 상태
  POST /api/jobs/ingest               - 수집 즉시 실행
  GET  /ws/jobs                       - 작업 이벤트 스트림

Example:
  go run ./cmd/screener api
  go run ./cmd/screener api --port 8080 --no-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort        string
	apiNoScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값: PORT)")
	apiCmd.Flags().BoolVar(&apiNoScheduler, "no-scheduler", false, "cron 스케줄 비활성화 (수동 실행은 가능)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Dinger API Server ===")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Config, store, cache, strategies
	deps, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	cfg, log := deps.cfg, deps.log
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Job event hub
	hub := ws.NewHub(cfg.CORSOrigins, log)

	// 3. Search index (built once now, refreshed by the scheduler)
	index, err := search.NewIndex(log)
	if err != nil {
		return fmt.Errorf("create search index: %w", err)
	}
	defer index.Close()

	if records, err := deps.screener.Records(ctx); err != nil {
		log.WithError(err).Warn("Initial search index build skipped")
	} else if err := index.Rebuild(records); err != nil {
		log.WithError(err).Warn("Initial search index build failed")
	}

	// 4. Analysis (optional)
	var analyzer *analysis.Service
	gen, err := analysis.NewGemini(ctx, cfg.Gemini)
	switch {
	case errors.Is(err, analysis.ErrAnalysisUnavailable):
		log.Warn("GEMINI_API_KEY not set, analysis endpoint disabled")
	case err != nil:
		log.WithError(err).Warn("Gemini client unavailable, analysis endpoint disabled")
	default:
		analyzer = analysis.NewService(gen, deps.screener, deps.cache, cfg.Gemini.Timeout, log)
	}

	// 5. Scheduler
	sched := scheduler.New(log, scheduler.WithRetry(1, time.Minute))
	ingestJob := deps.newIngestJob(ingest.Options{}, hub)
	if err := sched.AddJob(jobs.NewIngestJob(ingestJob, cfg.Ingest.Schedule, log)); err != nil {
		return fmt.Errorf("add ingest job: %w", err)
	}
	if err := sched.AddJob(jobs.NewSearchIndexJob(deps.screener, index, log)); err != nil {
		return fmt.Errorf("add search index job: %w", err)
	}
	if !apiNoScheduler {
		sched.Start()
	}
	defer sched.Stop()

	// 6. Router
	router := api.NewRouter(api.Handlers{
		Stocks:    handlers.NewStockHandler(deps.screener, deps.screener, index, analyzer, log),
		Screening: handlers.NewScreeningHandler(deps.screener, log),
		Jobs:      handlers.NewJobHandler(sched, log),
		Hub:       hub,
	}, cfg.CORSOrigins, log)

	server := api.New(cfg, log, router)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("✅ API server listening on :%s (store: %s)\n", cfg.Port, cfg.Store.Backend)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		fmt.Println("\nShutting down server...")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	fmt.Println("✅ Server stopped gracefully")
	return nil
}

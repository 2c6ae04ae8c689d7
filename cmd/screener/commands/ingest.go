package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/ingest"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "종목 지표 수집",
	Long: `FMP 종목 목록에서 신규 종목을 골라 지표를 수집합니다.

이 명령어는:
- FMP 에서 상장 종목 목록 조회
- 거래소/가격/심볼 길이 필터 및 기존 종목 제외
- Yahoo 통계 페이지에서 지표 수집 (실패 시 FMP 로 보충)
- 설정된 저장소에 저장

Example:
  go run ./cmd/screener ingest
  go run ./cmd/screener ingest --limit 20 --dry-run
  go run ./cmd/screener ingest --workers 4 --rate 2`,
	RunE: runIngest,
}

var (
	ingestDryRun  bool
	ingestLimit   int
	ingestWorkers int
	ingestRate    float64
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "수집만 하고 저장하지 않음")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "최대 수집 종목 수 (0 = 전체)")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "동시 작업 수 (기본값: min(4, CPU))")
	ingestCmd.Flags().Float64Var(&ingestRate, "rate", 0, "초당 종목 수 (기본값: INGEST_RATE_PER_SECOND)")
}

// consolePublisher prints job events as progress lines
type consolePublisher struct {
	tag string
}

// Publish prints one event
func (p consolePublisher) Publish(evt contracts.JobEvent) {
	switch evt.Type {
	case contracts.JobProgress:
		PrintProgress(p.tag, evt.Symbol, evt.Done, evt.Total)
	case contracts.JobFailed:
		PrintError(fmt.Sprintf("[%s] %s", p.tag, evt.Message))
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	job := deps.newIngestJob(ingest.Options{
		Workers:       ingestWorkers,
		RatePerSecond: ingestRate,
		Limit:         ingestLimit,
		DryRun:        ingestDryRun,
	}, consolePublisher{tag: "Ingest"})

	PrintJobHeader(JobMetadata{
		JobType:   "Fundamentals Ingest",
		Tag:       "Ingest",
		Timestamp: time.Now().Format(time.RFC3339),
		Source:    "FMP stock list → Yahoo / FMP metrics",
		Target:    deps.cfg.Store.Backend,
	})
	if ingestDryRun {
		PrintWarning("Dry run: 저장하지 않습니다")
	}

	res, err := job.Run(ctx)
	if res != nil {
		fmt.Println()
		PrintKeyValue("Run ID", res.RunID, 10)
		PrintKeyValue("Listed", strconv.Itoa(res.Listed), 10)
		PrintKeyValue("Candidates", strconv.Itoa(res.Candidates), 10)
		PrintKeyValue("Stored", strconv.Itoa(res.Stored), 10)
		PrintKeyValue("Skipped", strconv.Itoa(res.Skipped), 10)
		PrintKeyValue("Failed", strconv.Itoa(res.Failed), 10)
	}
	if err != nil {
		return err
	}

	PrintJobCompletion("Ingest", res.Duration.Seconds())
	return nil
}

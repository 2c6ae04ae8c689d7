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

	"github.com/wonny/dinger/backend/internal/export"
	"github.com/wonny/dinger/backend/internal/store"
	"github.com/wonny/dinger/backend/internal/store/sqlite"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "SQLite → 문서 저장소 이전",
	Long: `SQLite 파일의 모든 행을 대상 저장소로 복사합니다.

대상 문서는 심볼을 키로 덮어씁니다 (재실행 가능).
중간에 실패하면 그 전까지 쓴 문서는 그대로 남습니다.

Example:
  go run ./cmd/screener export --from backend/stocks.db --to firestore
  go run ./cmd/screener export --to postgres`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportFrom string
	exportTo   string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFrom, "from", "", "원본 SQLite 파일 (기본값: SQLITE_PATH)")
	exportCmd.Flags().StringVar(&exportTo, "to", store.BackendFirestore, "대상 저장소 (firestore|postgres|memory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportTo == store.BackendSQLite {
		return fmt.Errorf("--to %s: destination must differ from the sqlite source", exportTo)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if exportFrom == "" {
		exportFrom = cfg.SQLite.Path
	}

	src, err := sqlite.OpenReadOnly(exportFrom)
	if err != nil {
		return fmt.Errorf("open source %s: %w", exportFrom, err)
	}
	defer src.Close()

	dest, err := store.OpenBackend(ctx, exportTo, cfg, log)
	if err != nil {
		return err
	}
	defer dest.Close()

	PrintJobHeader(JobMetadata{
		JobType:   "Store Export",
		Tag:       "Export",
		Timestamp: time.Now().Format(time.RFC3339),
		Source:    exportFrom,
		Target:    exportTo,
	})

	res, err := export.New(src, dest, nil, log.WithField("module", "export")).Run(ctx)
	if res != nil {
		fmt.Println()
		PrintKeyValue("Run ID", res.RunID, 8)
		PrintKeyValue("Migrated", strconv.Itoa(res.Migrated), 8)
		PrintKeyValue("Skipped", strconv.Itoa(res.Skipped), 8)
	}
	if err != nil {
		return err
	}

	PrintJobCompletion("Export", res.Duration.Seconds())
	return nil
}

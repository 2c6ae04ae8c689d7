package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	storeBackend string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Dinger - 미국 주식 펀더멘털 스크리너",
	Long: `Dinger Unified CLI

저장된 종목 지표를 전략(규칙 묶음)으로 스크리닝하고 순위를 매깁니다.
수집(FMP, Yahoo), 저장소 이전(SQLite → Firestore), API 서버를 포함합니다.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener api
  go run ./cmd/screener screen valuation --limit 20
  go run ./cmd/screener analyze --forwardPE 20 --operatingMargins 0.2
  go run ./cmd/screener export --from backend/stocks.db --to firestore`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "store backend override (postgres|sqlite|firestore|memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

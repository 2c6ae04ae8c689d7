package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/dinger/backend/internal/screening"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "사용자 기준으로 스크리닝",
	Long: `지표별 기준값을 직접 지정해 스크리닝합니다.

지정한 지표만 규칙이 됩니다. 방향은 지표마다 고정입니다
(밸류에이션·부채는 미만, 수익성·성장은 초과).
시가총액 조건은 적용하지 않습니다.

Example:
  go run ./cmd/screener analyze --forwardPE 20 --operatingMargins 0.2
  go run ./cmd/screener analyze --returnOnEquity 0.15 --debtToEquity 80 --all`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

var analyzeBounds = make(map[string]*float64, len(screening.CustomFields))

func init() {
	rootCmd.AddCommand(analyzeCmd)

	for _, f := range screening.CustomFields {
		v := new(float64)
		analyzeBounds[f.Metric] = v
		analyzeCmd.Flags().Float64Var(v, f.Metric, 0, fmt.Sprintf("%s %s 기준값", f.Metric, f.Comparator))
	}
	analyzeCmd.Flags().IntVar(&screenLimit, "limit", 25, "출력할 최대 종목 수 (0 = 전체)")
	analyzeCmd.Flags().BoolVar(&screenAll, "all", false, "강조 기준 미달 종목도 출력")
	analyzeCmd.Flags().BoolVar(&screenJSON, "json", false, "JSON 으로 출력")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	// 명시적으로 지정한 플래그만 기준으로 사용
	bounds := make(map[string]float64)
	for metric, v := range analyzeBounds {
		if cmd.Flags().Changed(metric) {
			bounds[metric] = *v
		}
	}
	if len(bounds) == 0 {
		return fmt.Errorf("at least one criterion flag is required (see --help)")
	}

	ctx := context.Background()
	deps, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	res, err := deps.screener.ScreenCustom(ctx, bounds)
	if err != nil {
		return err
	}
	return printResult(res)
}

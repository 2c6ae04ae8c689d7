package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/screening"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen <strategy>",
	Short: "전략으로 스크리닝",
	Long: `저장된 종목 지표를 지정한 전략으로 스크리닝합니다.

전략 이름은 'strategies' 명령으로 확인할 수 있습니다.
기본 출력은 강조 기준(eligible)을 통과한 종목만 보여줍니다.

Example:
  go run ./cmd/screener screen valuation
  go run ./cmd/screener screen quality --limit 50 --all
  go run ./cmd/screener screen deep_value --json`,
	Args: cobra.ExactArgs(1),
	RunE: runScreen,
}

var (
	screenLimit int
	screenAll   bool
	screenJSON  bool
)

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().IntVar(&screenLimit, "limit", 25, "출력할 최대 종목 수 (0 = 전체)")
	screenCmd.Flags().BoolVar(&screenAll, "all", false, "강조 기준 미달 종목도 출력")
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "JSON 으로 출력")
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	deps, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	res, err := deps.screener.ScreenByName(ctx, args[0])
	if err != nil {
		return err
	}
	return printResult(res)
}

// printResult renders a screening result using the shared output flags
func printResult(res *screening.Result) error {
	stocks := res.Stocks
	if !screenAll {
		stocks = eligibleOnly(stocks)
	}
	if screenLimit > 0 && len(stocks) > screenLimit {
		stocks = stocks[:screenLimit]
	}

	if screenJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*screening.Result
			Stocks   []contracts.ScoredStock `json:"stocks"`
			Returned int                     `json:"returned"`
		}{res, stocks, len(stocks)})
	}

	PrintJobHeader(JobMetadata{
		JobType:   "Screening: " + res.Strategy.Name,
		Tag:       "Screen",
		Timestamp: res.ScreenedAt.Format(time.RFC3339),
	})
	if res.Strategy.Description != "" {
		PrintInfo(res.Strategy.Description)
	}
	PrintKeyValue("Input", strconv.Itoa(res.Stats.Input), 9)
	PrintKeyValue("Passed", strconv.Itoa(res.Stats.Passed), 9)
	PrintKeyValue("Eligible", strconv.Itoa(res.Stats.Eligible), 9)
	for reason, n := range res.Stats.Excluded {
		PrintKeyValue("Excluded", fmt.Sprintf("%s=%d", reason, n), 9)
	}
	fmt.Println()

	if len(stocks) == 0 {
		PrintWarning("조건을 만족하는 종목이 없습니다")
		return nil
	}

	total := len(res.Strategy.Rules)
	widths := []int{4, 7, 28, 9, 10, 24}
	PrintTableHeader([]string{"#", "Symbol", "Name", "Passed", "MarketCap", "Failed"}, widths)
	for i := range stocks {
		s := &stocks[i]
		passed := fmt.Sprintf("%d/%d", s.CriteriaPassed, total)
		if s.Eligible {
			passed += " ★"
		}
		PrintTableRow([]string{
			strconv.Itoa(i + 1),
			s.Symbol,
			Truncate(s.Name, 28),
			passed,
			FormatMetric(s.MarketCap),
			Truncate(strings.Join(s.FailedRules(), ","), 24),
		}, widths)
	}
	fmt.Println()
	PrintSuccess(fmt.Sprintf("%d stocks shown", len(stocks)))
	return nil
}

func eligibleOnly(stocks []contracts.ScoredStock) []contracts.ScoredStock {
	out := make([]contracts.ScoredStock, 0, len(stocks))
	for _, s := range stocks {
		if s.Eligible {
			out = append(out, s)
		}
	}
	return out
}

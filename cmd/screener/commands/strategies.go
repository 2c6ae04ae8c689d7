package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// strategiesCmd represents the strategies command
var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "등록된 전략 목록",
	Long: `내장 프리셋과 STRATEGY_DIR 의 YAML 전략을 출력합니다.

Example:
  go run ./cmd/screener strategies
  go run ./cmd/screener strategies --rules`,
	RunE: runStrategies,
}

var strategiesRules bool

func init() {
	rootCmd.AddCommand(strategiesCmd)

	strategiesCmd.Flags().BoolVar(&strategiesRules, "rules", false, "규칙까지 출력")
}

func runStrategies(cmd *cobra.Command, args []string) error {
	deps, err := newRuntime(context.Background())
	if err != nil {
		return err
	}
	defer deps.Close()

	fmt.Println()
	fmt.Println("📋 Registered strategies:")
	fmt.Println()

	widths := []int{28, 6, 9, 12, 40}
	PrintTableHeader([]string{"Name", "Rules", "Emphasis", "MarketCap", "Description"}, widths)
	for _, s := range deps.registry.List() {
		v := s.View()
		gate := "off"
		if v.MarketCap.Enabled {
			gate = FormatNumber(v.MarketCap.Min)
		}
		PrintTableRow([]string{
			v.Name,
			strconv.Itoa(len(v.Rules)),
			fmt.Sprintf("> %d", v.EmphasisThreshold),
			gate,
			Truncate(v.Description, 40),
		}, widths)

		if strategiesRules {
			for _, r := range v.Rules {
				fmt.Printf("      - %s\n", r.String())
			}
		}
	}
	fmt.Println()
	return nil
}

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/dinger/backend/pkg/config"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// testLoggerCmd represents the test-logger command
var testLoggerCmd = &cobra.Command{
	Use:   "test-logger",
	Short: "Logger 기능 테스트",
	Long: `구조화된 로깅 기능을 테스트합니다.

이 명령어는:
- JSON/Console 포맷 테스트
- 구조화된 필드 로깅
- 에러 컨텍스트 로깅

Example:
  go run ./cmd/screener test-logger`,
	RunE: runTestLogger,
}

func init() {
	rootCmd.AddCommand(testLoggerCmd)
}

func runTestLogger(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Dinger Logger Test ===")

	formats := []struct {
		title string
		cfg   *config.Config
	}{
		{"1. JSON Format (Production)", &config.Config{Env: "production", LogLevel: "info", LogFormat: "json"}},
		{"2. Console Format (Development)", &config.Config{Env: "development", LogLevel: "debug", LogFormat: "console"}},
	}

	for _, f := range formats {
		fmt.Println(f.title)
		fmt.Println("--------------------------------")
		logSamples(logger.New(f.cfg))
		fmt.Println()
	}

	fmt.Println("✅ All logger tests completed!")
	return nil
}

// logSamples writes one line per logging style used across the codebase
func logSamples(log *logger.Logger) {
	log.Debug("Debugging screening flow")
	log.Info("Service started")

	// Single field
	log.WithField("strategy", "valuation").Info("Screening requested")

	// Multiple fields
	log.WithFields(map[string]interface{}{
		"symbol":          "AAPL",
		"criteria_passed": 9,
		"eligible":        true,
	}).Info("Stock scored")

	// Error with context
	err := errors.New("connection timeout")
	log.WithError(err).
		WithFields(map[string]interface{}{
			"source":      "yahoo",
			"retry_count": 3,
		}).
		Warn("Statistics fetch failed, falling back to FMP")
}

package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "PairLab - 페어 트레이딩 평가기",
	Long: `PairLab Unified CLI

두 종목의 공적분 검정부터 백테스트 성과까지 한 번에 평가합니다.
S0 Prices → S1 Cointegration → S2 Spread → S3 Signals → S4 Backtest → S5 Performance

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant backtest run --a SPY --b IVV --csv prices.csv
  go run ./cmd/quant coint --a XLE --b XOP
  go run ./cmd/quant ingest csv --file prices.csv
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C / SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default: STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}

package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "quantdesk"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Backtesting and portfolio analytics engine",
		Version: version,
		Long: `QuantDesk runs signal-driven backtests, portfolio aggregation with
rebalancing, tail-risk measures, and return-series diagnostics over
daily market data.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applyLogLevel(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("json", false, "Force JSON output even on a terminal")

	backtestCmd := &cobra.Command{
		Use:   "backtest [ticker]",
		Short: "Run a single-asset strategy backtest",
		Long:  "Generates positions from the chosen strategy, simulates the equity curve with one-bar execution lag, and prints performance metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  runBacktest,
	}
	backtestCmd.Flags().String("strategy", "buy_hold", "Strategy kind (see 'quantdesk strategies')")
	backtestCmd.Flags().StringToString("param", nil, "Strategy parameter overrides, e.g. --param window=100")
	backtestCmd.Flags().String("period", "1y", "Data period (1mo|3mo|6mo|1y|2y|max)")
	backtestCmd.Flags().Float64("base", 10000, "Starting portfolio value")

	compareCmd := &cobra.Command{
		Use:   "compare [ticker]",
		Short: "Backtest several strategies side by side",
		Long:  "Runs each named strategy with default parameters over the same price series and prints a comparison table",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompare,
	}
	compareCmd.Flags().StringSlice("strategies", nil, "Strategy kinds to compare (default: all)")
	compareCmd.Flags().String("period", "1y", "Data period")
	compareCmd.Flags().Float64("base", 10000, "Starting portfolio value")

	strategiesCmd := &cobra.Command{
		Use:   "strategies",
		Short: "List available strategy kinds",
		RunE:  runStrategies,
	}

	portfolioCmd := &cobra.Command{
		Use:   "portfolio [ticker...]",
		Short: "Analyze a weighted multi-asset portfolio",
		Long:  "Aggregates constituent returns with weight drift and optional rebalancing, then prints performance, tail-risk, and diversification metrics",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runPortfolio,
	}
	portfolioCmd.Flags().Float64Slice("weights", nil, "Weights matching ticker order (default: equal)")
	portfolioCmd.Flags().String("rebalance", "none", "Rebalance frequency (none|monthly|quarterly|yearly)")
	portfolioCmd.Flags().String("benchmark", "", "Benchmark ticker for beta/alpha/information ratio")
	portfolioCmd.Flags().String("period", "1y", "Data period")
	portfolioCmd.Flags().Float64("base", 10000, "Starting portfolio value")

	diagnoseCmd := &cobra.Command{
		Use:   "diagnose [ticker]",
		Short: "Run randomness and regime diagnostics",
		Long:  "Computes the Hurst exponent, variance-ratio tests, multi-scale variance, and a rolling regime classification for one return series",
		Args:  cobra.ExactArgs(1),
		RunE:  runDiagnose,
	}
	diagnoseCmd.Flags().String("period", "2y", "Data period")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the daily text report",
		Long:  "Fetches the configured tickers and writes a fixed-width daily report with OHLCV, daily change, 30-day volatility, and max drawdown",
		RunE:  runReport,
	}
	reportCmd.Flags().StringSlice("tickers", nil, "Tickers to report on (default: config)")
	reportCmd.Flags().String("out", "", "Output directory (default: config; '-' for stdout only)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP API",
		Long:  "Serves /health, /metrics, /strategies, /backtest, /portfolio, and /diagnostics/{ticker} as JSON",
		RunE:  runServe,
	}
	serveCmd.Flags().String("host", "", "Listen host (overrides config)")
	serveCmd.Flags().Int("port", 0, "Listen port (overrides config)")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage recurring report jobs",
	}
	scheduleListCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured jobs",
		RunE:  runScheduleList,
	}
	scheduleRunCmd := &cobra.Command{
		Use:   "run [job-name]",
		Short: "Execute a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleRun,
	}
	scheduleStartCmd := &cobra.Command{
		Use:   "start",
		Short: "Run the scheduler daemon until interrupted",
		RunE:  runScheduleStart,
	}
	scheduleCmd.AddCommand(scheduleListCmd, scheduleRunCmd, scheduleStartCmd)

	rootCmd.AddCommand(backtestCmd, compareCmd, strategiesCmd, portfolioCmd, diagnoseCmd, reportCmd, serveCmd, scheduleCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func applyLogLevel(cmd *cobra.Command) {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		return
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, keeping default")
		return
	}
	zerolog.SetGlobalLevel(parsed)
}

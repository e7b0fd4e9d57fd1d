package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quantdesk/quantdesk/internal/application"
	"github.com/quantdesk/quantdesk/internal/config"
	"github.com/quantdesk/quantdesk/internal/data"
	"github.com/quantdesk/quantdesk/internal/httpapi"
	"github.com/quantdesk/quantdesk/internal/perf"
	"github.com/quantdesk/quantdesk/internal/portfolio"
	"github.com/quantdesk/quantdesk/internal/report"
	"github.com/quantdesk/quantdesk/internal/scheduler"
	sig "github.com/quantdesk/quantdesk/internal/signal"
)

// app bundles everything a command needs after config is loaded.
type app struct {
	cfg      config.AppConfig
	provider data.Provider
	analyzer *application.Analyzer
}

func buildApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	client := data.NewClient(data.ClientConfig{
		BaseURL:  cfg.Data.BaseURL,
		Timeout:  cfg.Data.Timeout(),
		CacheTTL: cfg.Data.CacheTTL(),
		RPS:      cfg.Data.RPS,
		Burst:    cfg.Data.Burst,
	}, data.NewCache())

	acfg := application.DefaultAnalysisConfig()
	acfg.Perf = perf.Config{
		PeriodsPerYear: cfg.Analysis.PeriodsPerYear,
		RiskFreeRate:   cfg.Analysis.RiskFreeRate,
	}
	acfg.VaRConfidences = cfg.Analysis.VaRConfidences

	return &app{
		cfg:      cfg,
		provider: client,
		analyzer: application.NewAnalyzer(client, acfg),
	}, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	forced, _ := cmd.Flags().GetBool("json")
	return forced || !term.IsTerminal(int(os.Stdout.Fd()))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}

	kind, _ := cmd.Flags().GetString("strategy")
	rawParams, _ := cmd.Flags().GetStringToString("param")
	period, _ := cmd.Flags().GetString("period")
	base, _ := cmd.Flags().GetFloat64("base")

	spec := sig.Spec{Kind: kind, Params: map[string]float64{}}
	for k, raw := range rawParams {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", k, err)
		}
		spec.Params[k] = v
	}

	result, err := a.analyzer.Backtest(cmd.Context(), args[0], period, spec, base)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(result)
	}
	printMetricsTable(result.Ticker, spec.Kind, result.Metrics)
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}

	kinds, _ := cmd.Flags().GetStringSlice("strategies")
	if len(kinds) == 0 {
		kinds = sig.Kinds()
	}
	period, _ := cmd.Flags().GetString("period")
	base, _ := cmd.Flags().GetFloat64("base")

	specs := make([]sig.Spec, len(kinds))
	for i, k := range kinds {
		specs[i] = sig.Spec{Kind: k}
	}

	results, err := a.analyzer.CompareStrategies(cmd.Context(), args[0], period, specs, base)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(results)
	}

	fmt.Printf("Strategy comparison for %s (%s)\n\n", args[0], period)
	fmt.Printf("%-22s %10s %10s %8s %8s %10s\n", "STRATEGY", "TOTAL", "ANNUAL", "SHARPE", "MAXDD", "WINRATE")
	for _, r := range results {
		fmt.Printf("%-22s %9.2f%% %9.2f%% %8.2f %7.2f%% %9.2f%%\n",
			r.Strategy.Kind,
			r.Metrics.TotalReturn*100,
			r.Metrics.AnnualizedReturn*100,
			r.Metrics.Sharpe,
			r.Metrics.MaxDrawdown*100,
			r.Metrics.WinRate*100)
	}
	return nil
}

func runStrategies(cmd *cobra.Command, args []string) error {
	if jsonOutput(cmd) {
		return printJSON(map[string]any{"strategies": sig.Kinds()})
	}
	for _, k := range sig.Kinds() {
		fmt.Println(k)
	}
	return nil
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}

	weights, _ := cmd.Flags().GetFloat64Slice("weights")
	rebalance, _ := cmd.Flags().GetString("rebalance")
	benchmark, _ := cmd.Flags().GetString("benchmark")
	period, _ := cmd.Flags().GetString("period")
	base, _ := cmd.Flags().GetFloat64("base")

	cfg := portfolio.Config{
		Tickers:   args,
		Rebalance: portfolio.Frequency(rebalance),
		Benchmark: benchmark,
	}
	if len(weights) == 0 {
		cfg.Weights = portfolio.EqualWeights(args)
	} else {
		if len(weights) != len(args) {
			return fmt.Errorf("got %d weights for %d tickers", len(weights), len(args))
		}
		cfg.Weights = make(map[string]float64, len(args))
		for i, t := range args {
			cfg.Weights[t] = weights[i]
		}
	}

	result, err := a.analyzer.AnalyzePortfolio(cmd.Context(), cfg, period, base)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(result)
	}

	fmt.Printf("Portfolio: %s (%s, rebalance=%s)\n\n", strings.Join(args, ", "), period, rebalance)
	printMetricsTable("portfolio", "", result.Metrics)
	fmt.Println()
	for _, key := range sortedKeys(result.VaR) {
		fmt.Printf("  VaR %s%%:            %10.4f\n", key, result.VaR[key])
		fmt.Printf("  CVaR %s%%:           %10.4f\n", key, result.CVaR[key])
	}
	fmt.Printf("  Diversification:    %10.4f\n", result.Diversification)
	fmt.Printf("  Effective assets:   %10.4f\n", result.EffectiveAssets)
	if result.Beta != nil {
		fmt.Printf("  Beta (%s):        %10.4f\n", benchmark, *result.Beta)
	}
	if result.Alpha != nil {
		fmt.Printf("  Alpha (%s):       %10.6f\n", benchmark, *result.Alpha)
	}
	if result.InformationRatio != nil {
		fmt.Printf("  Information ratio:  %10.4f\n", *result.InformationRatio)
	}
	return nil
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	period, _ := cmd.Flags().GetString("period")

	result, err := a.analyzer.Diagnostics(cmd.Context(), args[0], period)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(result)
	}

	fmt.Printf("Diagnostics for %s (%s)\n\n", result.Ticker, period)
	fmt.Printf("  Hurst exponent: %.4f (%s): %s\n", result.Hurst.Exponent, result.Hurst.Classification, result.Assessment)
	fmt.Println("\n  Variance ratio tests:")
	for _, vr := range result.VarianceRatio {
		fmt.Printf("    lag %3d: VR=%.4f z=%+.2f p=%.4f  %s\n", vr.Lag, vr.Ratio, vr.ZStat, vr.PValue, vr.Interpretation)
	}
	if n := len(result.Regimes); n > 0 {
		last := result.Regimes[n-1]
		fmt.Printf("\n  Current regime: %s (mean=%.6f vol=%.6f)\n", last.Label, last.MeanReturn, last.Volatility)
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}

	tickers, _ := cmd.Flags().GetStringSlice("tickers")
	if len(tickers) == 0 {
		tickers = a.cfg.Report.Tickers
	}
	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = a.cfg.Report.OutputDir
	}

	gen := report.NewGenerator(a.provider, a.cfg.Report.Period)
	lines := gen.Collect(cmd.Context(), tickers)
	now := time.Now()
	if err := report.Write(os.Stdout, lines, now); err != nil {
		return err
	}
	if outDir != "-" {
		path, err := report.Save(outDir, lines, now)
		if err != nil {
			return err
		}
		fmt.Printf("\nSaved to: %s\n", path)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		a.cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		a.cfg.Server.Port = port
	}

	server := httpapi.NewServer(a.cfg.Server, a.analyzer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	jobs := a.cfg.Report.Jobs
	if jsonOutput(cmd) {
		return printJSON(map[string]any{"jobs": jobs})
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs configured")
		return nil
	}
	fmt.Printf("%-20s %-12s %-8s %s\n", "NAME", "INTERVAL", "ENABLED", "TICKERS")
	for _, j := range jobs {
		tickers := strings.Join(j.Tickers, ",")
		if tickers == "" {
			tickers = "(default)"
		}
		fmt.Printf("%-20s %-12s %-8t %s\n", j.Name, j.Interval(), j.Enabled, tickers)
	}
	return nil
}

func runScheduleRun(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	gen := report.NewGenerator(a.provider, a.cfg.Report.Period)
	sched := scheduler.New(a.cfg.Report, gen)

	res := sched.RunJob(cmd.Context(), args[0])
	if jsonOutput(cmd) {
		return printJSON(res)
	}
	if !res.Success {
		return fmt.Errorf("job %s failed: %s", res.JobName, res.Error)
	}
	fmt.Printf("Job %s completed in %s -> %s\n", res.JobName, res.Duration, res.Artifact)
	return nil
}

func runScheduleStart(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	gen := report.NewGenerator(a.provider, a.cfg.Report.Period)
	sched := scheduler.New(a.cfg.Report, gen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	log.Info().Msg("Scheduler stopped")
	return nil
}

func printMetricsTable(ticker, strategy string, m perf.Metrics) {
	if strategy != "" {
		fmt.Printf("Backtest: %s / %s\n\n", ticker, strategy)
	}
	fmt.Printf("  Total return:       %9.2f%%\n", m.TotalReturn*100)
	fmt.Printf("  Annualized return:  %9.2f%%\n", m.AnnualizedReturn*100)
	fmt.Printf("  Volatility:         %9.2f%%\n", m.Volatility*100)
	fmt.Printf("  Sharpe:             %10.4f\n", m.Sharpe)
	fmt.Printf("  Sortino:            %10.4f\n", m.Sortino)
	fmt.Printf("  Calmar:             %10.4f\n", m.Calmar)
	fmt.Printf("  Max drawdown:       %9.2f%%\n", m.MaxDrawdown*100)
	if m.RecoveryPeriods == perf.NotYetRecovered {
		fmt.Printf("  Recovery:            not yet recovered\n")
	} else {
		fmt.Printf("  Recovery:           %7d bars\n", m.RecoveryPeriods)
	}
	fmt.Printf("  Win rate:           %9.2f%%\n", m.WinRate*100)
	fmt.Printf("  Profit factor:      %10.4f\n", m.ProfitFactor)
	fmt.Printf("  Ulcer index:        %10.4f\n", m.UlcerIndex)
	fmt.Printf("  Skewness:           %10.4f\n", m.Skewness)
	fmt.Printf("  Kurtosis:           %10.4f\n", m.Kurtosis)
	fmt.Printf("  Tail ratio:         %10.4f\n", m.TailRatio)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

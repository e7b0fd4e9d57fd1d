package application

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantdesk/quantdesk/internal/data"
	"github.com/quantdesk/quantdesk/internal/portfolio"
	"github.com/quantdesk/quantdesk/internal/series"
	"github.com/quantdesk/quantdesk/internal/signal"
	"github.com/quantdesk/quantdesk/internal/telemetry"
)

// Analyzer runs the analytics pipeline against a market-data provider. It is
// stateless between invocations: each call fetches fresh inputs and returns
// a self-contained result, so concurrent runs need no locking.
type Analyzer struct {
	provider data.Provider
	cfg      AnalysisConfig
}

// NewAnalyzer wires an Analyzer to a data provider.
func NewAnalyzer(provider data.Provider, cfg AnalysisConfig) *Analyzer {
	return &Analyzer{provider: provider, cfg: cfg}
}

// Config exposes the analysis configuration in use.
func (a *Analyzer) Config() AnalysisConfig { return a.cfg }

// Backtest fetches one ticker's history and runs a single strategy over it.
func (a *Analyzer) Backtest(ctx context.Context, ticker, period string, spec signal.Spec, baseValue float64) (*BacktestResult, error) {
	defer track("backtest")()

	prices, err := a.provider.Daily(ctx, ticker, period)
	if err != nil {
		return nil, err
	}
	res, err := RunBacktest(prices, spec, baseValue, a.cfg.Perf)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("ticker", ticker).
		Str("strategy", spec.Kind).
		Int("bars", prices.Len()).
		Float64("total_return", res.Metrics.TotalReturn).
		Msg("backtest complete")
	return res, nil
}

// CompareStrategies runs every given strategy over one ticker's history,
// each in its own goroutine writing to its own result slot. Strategies that
// fail (e.g. insufficient history for a 200-bar lookback) are skipped with a
// warning, not fatal; the dashboard compares whatever ran.
func (a *Analyzer) CompareStrategies(ctx context.Context, ticker, period string, specs []signal.Spec, baseValue float64) ([]*BacktestResult, error) {
	defer track("compare")()

	prices, err := a.provider.Daily(ctx, ticker, period)
	if err != nil {
		return nil, err
	}

	slots := make([]*BacktestResult, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec signal.Spec) {
			defer wg.Done()
			res, err := RunBacktest(prices, spec, baseValue, a.cfg.Perf)
			if err != nil {
				log.Warn().Err(err).Str("ticker", ticker).Str("strategy", spec.Kind).Msg("strategy skipped")
				return
			}
			slots[i] = res
		}(i, spec)
	}
	wg.Wait()

	out := make([]*BacktestResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// AnalyzePortfolio fetches every constituent (and the benchmark, if set)
// concurrently, derives return series, and runs the portfolio pipeline.
func (a *Analyzer) AnalyzePortfolio(ctx context.Context, cfg portfolio.Config, period string, baseValue float64) (*PortfolioResult, error) {
	defer track("portfolio")()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tickers := cfg.Tickers
	if cfg.Benchmark != "" {
		tickers = append(append([]string{}, cfg.Tickers...), cfg.Benchmark)
	}
	priceMap, err := a.fetchAll(ctx, tickers, period)
	if err != nil {
		return nil, err
	}

	assetReturns := make(map[string]series.ReturnSeries, len(cfg.Tickers))
	for _, t := range cfg.Tickers {
		assetReturns[t] = priceMap[t].Returns()
	}
	var benchmark series.ReturnSeries
	if cfg.Benchmark != "" {
		benchmark = priceMap[cfg.Benchmark].Returns()
	}

	res, err := BuildPortfolio(assetReturns, benchmark, cfg, a.cfg, baseValue)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("assets", len(cfg.Tickers)).
		Str("rebalance", string(cfg.Rebalance)).
		Float64("sharpe", res.Metrics.Sharpe).
		Msg("portfolio analysis complete")
	return res, nil
}

// Diagnostics fetches one ticker and runs the advanced analytics suite over
// its return series.
func (a *Analyzer) Diagnostics(ctx context.Context, ticker, period string) (*DiagnosticsResult, error) {
	defer track("diagnostics")()

	prices, err := a.provider.Daily(ctx, ticker, period)
	if err != nil {
		return nil, err
	}
	return Diagnose(prices.Ticker, prices.Returns(), a.cfg)
}

// fetchAll pulls several tickers concurrently; each goroutine owns its own
// slot and the first error wins.
func (a *Analyzer) fetchAll(ctx context.Context, tickers []string, period string) (map[string]series.PriceSeries, error) {
	type slot struct {
		ps  series.PriceSeries
		err error
	}
	slots := make([]slot, len(tickers))
	var wg sync.WaitGroup
	for i, t := range tickers {
		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()
			ps, err := a.provider.Daily(ctx, t, period)
			slots[i] = slot{ps: ps, err: err}
		}(i, t)
	}
	wg.Wait()

	out := make(map[string]series.PriceSeries, len(tickers))
	for i, t := range tickers {
		if slots[i].err != nil {
			return nil, slots[i].err
		}
		out[t] = slots[i].ps
	}
	return out, nil
}

// track pairs the in-flight gauge with a duration observation.
func track(kind string) func() {
	telemetry.AnalysisStarted()
	start := time.Now()
	return func() {
		telemetry.AnalysisDone()
		telemetry.ObserveAnalysis(kind, time.Since(start))
	}
}

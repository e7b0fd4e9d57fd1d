// Package application wires the analytics pipeline end to end: price series
// in, structured numeric results out. The pipeline stages themselves are pure
// (signal -> sim -> perf / portfolio -> risk / analytics); this package adds
// the data-access boundary, per-ticker concurrency, logging, and telemetry.
package application

import (
	"strconv"
	"time"

	"github.com/quantdesk/quantdesk/internal/analytics"
	"github.com/quantdesk/quantdesk/internal/perf"
	"github.com/quantdesk/quantdesk/internal/portfolio"
	"github.com/quantdesk/quantdesk/internal/risk"
	"github.com/quantdesk/quantdesk/internal/series"
	"github.com/quantdesk/quantdesk/internal/signal"
	"github.com/quantdesk/quantdesk/internal/sim"
)

// AnalysisConfig gathers the numeric policy knobs for one analysis run.
type AnalysisConfig struct {
	Perf           perf.Config            `yaml:"perf"`
	VaRConfidences []float64              `yaml:"var_confidences"`
	Hurst          analytics.HurstConfig  `yaml:"hurst"`
	Regime         analytics.RegimeConfig `yaml:"regime"`
}

// DefaultAnalysisConfig assumes daily sampling and the documented
// diagnostic defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Perf:           perf.DefaultConfig(),
		VaRConfidences: []float64{0.95, 0.99},
		Hurst:          analytics.DefaultHurstConfig(),
		Regime:         analytics.DefaultRegimeConfig(),
	}
}

// BacktestResult is the full output of one single-asset strategy run.
type BacktestResult struct {
	Ticker   string              `json:"ticker"`
	Strategy signal.Spec         `json:"strategy"`
	Equity   series.EquityCurve  `json:"equity"`
	Returns  series.ReturnSeries `json:"returns"`
	Metrics  perf.Metrics        `json:"metrics"`
}

// RunBacktest executes the pure signal -> simulate -> measure pipeline over
// one price series. baseValue seeds the equity curve (commonly 100.0).
func RunBacktest(prices series.PriceSeries, spec signal.Spec, baseValue float64, cfg perf.Config) (*BacktestResult, error) {
	positions, err := signal.GeneratePositions(prices, spec)
	if err != nil {
		return nil, err
	}
	curve, err := sim.Simulate(prices, positions, baseValue)
	if err != nil {
		return nil, err
	}
	returns, err := sim.StrategyReturns(prices, positions)
	if err != nil {
		return nil, err
	}
	return &BacktestResult{
		Ticker:   prices.Ticker,
		Strategy: spec,
		Equity:   curve,
		Returns:  returns,
		Metrics:  perf.Compute(curve, returns, cfg),
	}, nil
}

// AssetSummary is the per-constituent slice of a portfolio analysis.
type AssetSummary struct {
	Weight  float64      `json:"weight"`
	Metrics perf.Metrics `json:"metrics"`
	VaR95   float64      `json:"var_95"`
}

// PortfolioResult aggregates everything the presentation layer needs for one
// portfolio: scalar metrics, tail risk at each configured confidence,
// benchmark-relative statistics when a benchmark is configured, the
// correlation matrix, and the compounded value curve.
type PortfolioResult struct {
	Metrics          perf.Metrics            `json:"metrics"`
	VaR              map[string]float64      `json:"var"`
	CVaR             map[string]float64      `json:"cvar"`
	Beta             *float64                `json:"beta,omitempty"`
	Alpha            *float64                `json:"alpha,omitempty"`
	Treynor          *float64                `json:"treynor,omitempty"`
	InformationRatio *float64                `json:"information_ratio,omitempty"`
	Correlation      risk.Matrix             `json:"correlation"`
	Diversification  float64                 `json:"diversification_ratio"`
	EffectiveAssets  float64                 `json:"effective_assets"`
	Assets           map[string]AssetSummary `json:"assets"`
	Equity           series.EquityCurve      `json:"equity"`
	Returns          series.ReturnSeries     `json:"returns"`
}

// BuildPortfolio runs the pure portfolio pipeline over already-fetched asset
// returns. benchmark may be nil when cfg.Benchmark is unset.
func BuildPortfolio(assetReturns map[string]series.ReturnSeries, benchmark series.ReturnSeries, cfg portfolio.Config, acfg AnalysisConfig, baseValue float64) (*PortfolioResult, error) {
	portReturns, err := portfolio.Aggregate(assetReturns, cfg)
	if err != nil {
		return nil, err
	}
	curve := compound(portReturns, baseValue)

	corr, err := risk.CorrelationMatrix(assetReturns, cfg.Tickers)
	if err != nil {
		return nil, err
	}

	res := &PortfolioResult{
		Metrics:         perf.Compute(curve, portReturns, acfg.Perf),
		VaR:             map[string]float64{},
		CVaR:            map[string]float64{},
		Correlation:     corr,
		Diversification: risk.DiversificationRatio(assetReturns, cfg.Weights),
		EffectiveAssets: risk.EffectiveAssets(cfg.Weights),
		Assets:          make(map[string]AssetSummary, len(cfg.Tickers)),
		Equity:          curve,
		Returns:         portReturns,
	}

	vals := portReturns.Values()
	for _, c := range acfg.VaRConfidences {
		key := confKey(c)
		res.VaR[key] = risk.VaR(vals, c)
		res.CVaR[key] = risk.CVaR(vals, c)
	}

	for _, ticker := range cfg.Tickers {
		rs := assetReturns[ticker]
		assetCurve := compound(rs, baseValue)
		res.Assets[ticker] = AssetSummary{
			Weight:  cfg.Weights[ticker],
			Metrics: perf.Compute(assetCurve, rs, acfg.Perf),
			VaR95:   risk.VaR(rs.Values(), 0.95),
		}
	}

	if benchmark != nil {
		beta, err := risk.Beta(portReturns, benchmark)
		if err != nil {
			return nil, err
		}
		alpha, err := risk.Alpha(portReturns, benchmark)
		if err != nil {
			return nil, err
		}
		treynor, err := risk.Treynor(portReturns, benchmark, acfg.Perf.PeriodsPerYear, acfg.Perf.RiskFreeRate)
		if err != nil {
			return nil, err
		}
		ir := perf.InformationRatio(portReturns, benchmark, acfg.Perf)
		res.Beta, res.Alpha, res.Treynor, res.InformationRatio = &beta, &alpha, &treynor, &ir
	}
	return res, nil
}

// DiagnosticsResult bundles the randomness and regime diagnostics for one
// return series.
type DiagnosticsResult struct {
	Ticker        string                    `json:"ticker"`
	Hurst         analytics.HurstResult     `json:"hurst"`
	Assessment    string                    `json:"assessment"`
	MultiScale    []analytics.ScaleVariance `json:"multi_scale_variance"`
	VarianceRatio []analytics.VRResult      `json:"variance_ratio"`
	Regimes       []analytics.Regime        `json:"regimes"`
}

// Diagnose runs the advanced analytics suite over one return series.
func Diagnose(ticker string, returns series.ReturnSeries, acfg AnalysisConfig) (*DiagnosticsResult, error) {
	hurst, err := analytics.Hurst(returns, acfg.Hurst)
	if err != nil {
		return nil, err
	}
	regimes, err := analytics.DetectRegimes(returns, acfg.Regime)
	if err != nil {
		return nil, err
	}
	return &DiagnosticsResult{
		Ticker:        ticker,
		Hurst:         hurst,
		Assessment:    analytics.PersistenceAssessment(hurst.Exponent, acfg.Hurst),
		MultiScale:    analytics.MultiScaleVariance(returns, nil),
		VarianceRatio: analytics.VarianceRatio(returns, nil),
		Regimes:       regimes,
	}, nil
}

// compound folds period returns into a value curve anchored at base, so the
// first period's return is part of every curve-based metric. The anchor point
// is stamped one period ahead of the first return.
func compound(returns series.ReturnSeries, base float64) series.EquityCurve {
	if len(returns) == 0 {
		return nil
	}
	step := 24 * time.Hour
	if len(returns) > 1 {
		step = returns[1].Timestamp.Sub(returns[0].Timestamp)
	}
	out := make(series.EquityCurve, 0, len(returns)+1)
	out = append(out, series.Point{Timestamp: returns[0].Timestamp.Add(-step), Value: base})
	v := base
	for _, p := range returns {
		v *= 1 + p.Value
		if v < 0 {
			v = 0
		}
		out = append(out, series.Point{Timestamp: p.Timestamp, Value: v})
	}
	return out
}

// confKey renders a confidence level as a percent label, e.g. 0.95 -> "95".
func confKey(c float64) string {
	return strconv.FormatFloat(c*100, 'f', -1, 64)
}

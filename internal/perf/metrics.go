// Package perf computes return and risk statistics from equity curves and
// return series. All functions are pure and hold no state between calls.
//
// Degenerate inputs use documented sentinel values instead of NaN or Inf: a
// flat return series has a Sharpe of exactly 0, and ratios whose risk
// denominator vanishes (Sortino with no losing periods, Calmar with zero
// drawdown, profit factor with zero losses) report Sentinel so comparisons
// stay orderable and downstream aggregation is never poisoned.
package perf

import (
	"github.com/quantdesk/quantdesk/internal/series"
)

// Sentinel is the large finite value reported where a ratio's risk
// denominator is exactly zero.
const Sentinel = 1e9

// NotYetRecovered flags an equity curve that ends while still in drawdown.
const NotYetRecovered = -1

// Config carries the sampling assumptions for annualized statistics.
// PeriodsPerYear is a caller decision (252 daily, 12 monthly), never inferred
// from the series.
type Config struct {
	PeriodsPerYear float64 `yaml:"periods_per_year" json:"periods_per_year"`
	RiskFreeRate   float64 `yaml:"risk_free_rate" json:"risk_free_rate"` // annualized
}

// DefaultConfig assumes daily bars and a zero risk-free rate.
func DefaultConfig() Config {
	return Config{PeriodsPerYear: 252}
}

// Metrics is the scalar summary for one return series / equity curve pair.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	Sharpe           float64 `json:"sharpe"`
	Sortino          float64 `json:"sortino"`
	Calmar           float64 `json:"calmar"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	RecoveryPeriods  int     `json:"recovery_periods"` // NotYetRecovered if unrecovered
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
	UlcerIndex       float64 `json:"ulcer_index"`
	RecoveryFactor   float64 `json:"recovery_factor"`
	Skewness         float64 `json:"skewness"`
	Kurtosis         float64 `json:"kurtosis"`
	TailRatio        float64 `json:"tail_ratio"`
}

// Compute bundles every scalar metric for a strategy run.
func Compute(curve series.EquityCurve, returns series.ReturnSeries, cfg Config) Metrics {
	rs := returns.Values()
	return Metrics{
		TotalReturn:      TotalReturn(curve),
		AnnualizedReturn: AnnualizedReturn(curve, cfg),
		Volatility:       AnnualizedVolatility(rs, cfg),
		Sharpe:           Sharpe(rs, cfg),
		Sortino:          Sortino(rs, cfg),
		Calmar:           Calmar(curve, cfg),
		MaxDrawdown:      MaxDrawdown(curve),
		RecoveryPeriods:  RecoveryPeriods(curve),
		WinRate:          WinRate(rs),
		ProfitFactor:     ProfitFactor(rs),
		UlcerIndex:       UlcerIndex(curve),
		RecoveryFactor:   RecoveryFactor(curve),
		Skewness:         Skewness(rs),
		Kurtosis:         Kurtosis(rs),
		TailRatio:        TailRatio(rs),
	}
}

// Package portfolio combines per-asset return series into a single portfolio
// return series under a target-weight and rebalancing policy. Alignment is
// strictly by timestamp intersection: a day on which any constituent did not
// trade contributes nothing, because forward-filling would fabricate returns.
package portfolio

import (
	"fmt"
	"math"
	"time"

	"github.com/quantdesk/quantdesk/internal/series"
)

// Frequency is the rebalancing cadence.
type Frequency string

const (
	RebalanceNone      Frequency = "none"
	RebalanceMonthly   Frequency = "monthly"
	RebalanceQuarterly Frequency = "quarterly"
	RebalanceYearly    Frequency = "yearly"
)

// WeightTolerance is how far target weights may stray from summing to 1.
const WeightTolerance = 1e-3

// Config describes one portfolio for the duration of an analysis run.
// Tickers preserves the caller's display order; Weights maps ticker to target
// weight and must sum to 1 within WeightTolerance.
type Config struct {
	Tickers   []string           `yaml:"tickers" json:"tickers"`
	Weights   map[string]float64 `yaml:"weights" json:"weights"`
	Rebalance Frequency          `yaml:"rebalance" json:"rebalance"`
	Benchmark string             `yaml:"benchmark,omitempty" json:"benchmark,omitempty"`
}

// EqualWeights builds a uniform weight map over the given tickers.
func EqualWeights(tickers []string) map[string]float64 {
	out := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		out[t] = 1.0 / float64(len(tickers))
	}
	return out
}

// NormalizeWeights rescales weights to sum to 1. An all-zero map falls back
// to equal weights.
func NormalizeWeights(weights map[string]float64) map[string]float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	out := make(map[string]float64, len(weights))
	if total == 0 {
		for t := range weights {
			out[t] = 1.0 / float64(len(weights))
		}
		return out
	}
	for t, w := range weights {
		out[t] = w / total
	}
	return out
}

// Validate rejects empty universes, missing or negative weights, weight sums
// off by more than WeightTolerance, and unknown rebalancing frequencies.
func (c Config) Validate() error {
	if len(c.Tickers) == 0 {
		return &series.ConfigError{Op: "portfolio.Validate", Detail: "no tickers configured"}
	}
	var total float64
	for _, t := range c.Tickers {
		w, ok := c.Weights[t]
		if !ok {
			return &series.ConfigError{Op: "portfolio.Validate", Detail: fmt.Sprintf("no weight for ticker %s", t)}
		}
		if w < 0 {
			return &series.ConfigError{Op: "portfolio.Validate", Detail: fmt.Sprintf("negative weight %.4f for ticker %s", w, t)}
		}
		total += w
	}
	if math.Abs(total-1) > WeightTolerance {
		return &series.ConfigError{Op: "portfolio.Validate", Detail: fmt.Sprintf("weights sum to %.4f, want 1.0 ± %.0e", total, WeightTolerance)}
	}
	switch c.Rebalance {
	case "", RebalanceNone, RebalanceMonthly, RebalanceQuarterly, RebalanceYearly:
	default:
		return &series.ConfigError{Op: "portfolio.Validate", Detail: fmt.Sprintf("unknown rebalance frequency %q", c.Rebalance)}
	}
	return nil
}

// Aggregate combines the constituents' return series into the portfolio
// return series. Weights start at the targets, drift with realized relative
// performance between rebalances (buy-and-hold drift), and reset to the
// targets at each rebalancing timestamp. The return at t uses the drifted
// weights as of t-1.
func Aggregate(assetReturns map[string]series.ReturnSeries, cfg Config) (series.ReturnSeries, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	universe := make(map[string]series.ReturnSeries, len(cfg.Tickers))
	for _, t := range cfg.Tickers {
		rs, ok := assetReturns[t]
		if !ok {
			return nil, &series.MisalignmentError{Op: "portfolio.Aggregate", Detail: "no return series for ticker " + t}
		}
		universe[t] = rs
	}

	cols, stamps := series.IntersectAll(universe)
	if len(stamps) == 0 {
		return nil, &series.InsufficientOverlapError{Op: "portfolio.Aggregate", Required: 1, Available: 0}
	}

	weights := make(map[string]float64, len(cfg.Tickers))
	for _, t := range cfg.Tickers {
		weights[t] = cfg.Weights[t]
	}

	out := make(series.ReturnSeries, 0, len(stamps))
	for i, ts := range stamps {
		if i > 0 && rebalanceDue(cfg.Rebalance, stamps[i-1], ts) {
			for _, t := range cfg.Tickers {
				weights[t] = cfg.Weights[t]
			}
		}

		var portRet float64
		for _, t := range cfg.Tickers {
			portRet += weights[t] * cols[t][i]
		}
		out = append(out, series.Point{Timestamp: ts, Value: portRet})

		// drift: each sleeve grows by its own return, renormalized by the
		// portfolio's growth
		if growth := 1 + portRet; growth != 0 {
			for _, t := range cfg.Tickers {
				weights[t] = weights[t] * (1 + cols[t][i]) / growth
			}
		}
	}
	return out, nil
}

// rebalanceDue reports whether a period boundary falls between consecutive
// observations.
func rebalanceDue(freq Frequency, prev, cur time.Time) bool {
	switch freq {
	case RebalanceMonthly:
		return prev.Month() != cur.Month() || prev.Year() != cur.Year()
	case RebalanceQuarterly:
		return quarter(prev) != quarter(cur) || prev.Year() != cur.Year()
	case RebalanceYearly:
		return prev.Year() != cur.Year()
	default:
		return false
	}
}

func quarter(t time.Time) int { return (int(t.Month()) - 1) / 3 }

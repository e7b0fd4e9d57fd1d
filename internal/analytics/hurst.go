// Package analytics provides long-range-dependence and regime diagnostics
// over a single return series: Hurst exponent via rescaled-range analysis,
// multi-scale variance, the Lo-MacKinlay variance-ratio test, and a
// sliding-window regime classifier. Everything here is a read-only reducer;
// inputs are never mutated.
package analytics

import (
	"math"

	"github.com/quantdesk/quantdesk/internal/series"
)

// HurstConfig controls the rescaled-range estimation. Window sizes default to
// powers of two from MinWindow up to n/4; the interpretation bands are a
// policy choice, not a hard boundary.
type HurstConfig struct {
	MinObservations int     `yaml:"min_observations" json:"min_observations"`
	MinWindow       int     `yaml:"min_window" json:"min_window"`
	TrendingBand    float64 `yaml:"trending_band" json:"trending_band"`
	MeanRevertBand  float64 `yaml:"mean_revert_band" json:"mean_revert_band"`
}

// DefaultHurstConfig matches the documented defaults: at least 100
// observations, windows 8..n/4, bands at 0.55 and 0.45.
func DefaultHurstConfig() HurstConfig {
	return HurstConfig{
		MinObservations: 100,
		MinWindow:       8,
		TrendingBand:    0.55,
		MeanRevertBand:  0.45,
	}
}

// WindowRS is the average rescaled range observed at one window size.
type WindowRS struct {
	Window int     `json:"window"`
	RS     float64 `json:"rs"`
}

// HurstResult carries the estimated exponent, its per-window R/S samples,
// and the band classification.
type HurstResult struct {
	Exponent       float64    `json:"exponent"`
	Windows        []WindowRS `json:"windows"`
	Classification string     `json:"classification"`
}

// Hurst estimates the Hurst exponent by rescaled-range analysis: for each
// window size, the series is cut into non-overlapping blocks, each block's
// range of mean-adjusted cumulative deviations is scaled by its standard
// deviation, and the exponent is the slope of log(R/S) against log(window)
// by least squares. Series shorter than cfg.MinObservations fail with
// series.InsufficientHistoryError rather than returning an unstable number.
func Hurst(returns series.ReturnSeries, cfg HurstConfig) (HurstResult, error) {
	vals := returns.Values()
	n := len(vals)
	if n < cfg.MinObservations {
		return HurstResult{}, &series.InsufficientHistoryError{
			Op:        "analytics.Hurst",
			Required:  cfg.MinObservations,
			Available: n,
		}
	}

	var windows []WindowRS
	for w := cfg.MinWindow; w <= n/4; w *= 2 {
		rs := avgRescaledRange(vals, w)
		if rs > 0 {
			windows = append(windows, WindowRS{Window: w, RS: rs})
		}
	}
	if len(windows) < 2 {
		return HurstResult{}, &series.InsufficientHistoryError{
			Op:        "analytics.Hurst",
			Required:  cfg.MinWindow * 8, // at least two usable window sizes
			Available: n,
		}
	}

	logW := make([]float64, len(windows))
	logRS := make([]float64, len(windows))
	for i, w := range windows {
		logW[i] = math.Log(float64(w.Window))
		logRS[i] = math.Log(w.RS)
	}
	h := slope(logW, logRS)

	return HurstResult{
		Exponent:       h,
		Windows:        windows,
		Classification: classifyHurst(h, cfg),
	}, nil
}

// PersistenceAssessment maps a Hurst exponent to the band interpretation
// used by the reporting layer.
func PersistenceAssessment(h float64, cfg HurstConfig) string {
	switch {
	case h > cfg.TrendingBand:
		return "series shows persistence: shocks tend to be followed by moves in the same direction"
	case h < cfg.MeanRevertBand:
		return "series shows anti-persistence: shocks tend to revert"
	default:
		return "series is close to a random walk"
	}
}

func classifyHurst(h float64, cfg HurstConfig) string {
	switch {
	case h > cfg.TrendingBand:
		return "trending"
	case h < cfg.MeanRevertBand:
		return "mean_reverting"
	default:
		return "random_walk"
	}
}

// avgRescaledRange averages R/S over the non-overlapping blocks of size w.
// Blocks with zero standard deviation are skipped.
func avgRescaledRange(vals []float64, w int) float64 {
	blocks := len(vals) / w
	if blocks == 0 {
		return 0
	}
	var sum float64
	var used int
	for b := 0; b < blocks; b++ {
		block := vals[b*w : (b+1)*w]
		var m float64
		for _, v := range block {
			m += v
		}
		m /= float64(w)

		var cum, minDev, maxDev, ss float64
		for _, v := range block {
			cum += v - m
			if cum < minDev {
				minDev = cum
			}
			if cum > maxDev {
				maxDev = cum
			}
			ss += (v - m) * (v - m)
		}
		s := math.Sqrt(ss / float64(w))
		if s == 0 {
			continue
		}
		sum += (maxDev - minDev) / s
		used++
	}
	if used == 0 {
		return 0
	}
	return sum / float64(used)
}

// slope is the least-squares slope of y on x.
func slope(x, y []float64) float64 {
	n := float64(len(x))
	var sx, sy, sxx, sxy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
		sxx += x[i] * x[i]
		sxy += x[i] * y[i]
	}
	denom := n*sxx - sx*sx
	if denom == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / denom
}

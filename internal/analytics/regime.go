package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/quantdesk/quantdesk/internal/series"
)

// RegimeLabel is the qualitative market state for one evaluation window.
type RegimeLabel string

const (
	RegimeBull     RegimeLabel = "bull"
	RegimeBear     RegimeLabel = "bear"
	RegimeSideways RegimeLabel = "sideways"
	RegimeHighVol  RegimeLabel = "high_volatility"
)

// RegimeConfig controls the sliding-window classifier. TrendThreshold is the
// per-period mean return above which a window counts as bull (below its
// negative, bear); VolMultiplier scales the median rolling volatility into
// the high-volatility cutoff. Thresholds are configuration, not constants.
type RegimeConfig struct {
	Window         int     `yaml:"window" json:"window"`
	TrendThreshold float64 `yaml:"trend_threshold" json:"trend_threshold"`
	VolMultiplier  float64 `yaml:"vol_multiplier" json:"vol_multiplier"`
}

// DefaultRegimeConfig uses a 60-observation window, a 5bp daily trend
// threshold, and a 1.5x volatility multiplier.
func DefaultRegimeConfig() RegimeConfig {
	return RegimeConfig{Window: 60, TrendThreshold: 0.0005, VolMultiplier: 1.5}
}

// DetectRegimes labels each trailing window of the return series as
// bull/bear/sideways/high-volatility. High volatility (trailing standard
// deviation above VolMultiplier times the median rolling standard deviation)
// takes precedence over the trend labels. Consecutive windows may flip
// labels freely: no temporal smoothing or hysteresis is applied, a known
// limitation of the classifier.
func DetectRegimes(returns series.ReturnSeries, cfg RegimeConfig) ([]Regime, error) {
	vals := returns.Values()
	if len(vals) < cfg.Window {
		return nil, &series.InsufficientHistoryError{
			Op:        "analytics.DetectRegimes",
			Required:  cfg.Window,
			Available: len(vals),
		}
	}

	n := len(vals) - cfg.Window + 1
	means := make([]float64, n)
	stds := make([]float64, n)
	for i := 0; i < n; i++ {
		w := vals[i : i+cfg.Window]
		m := 0.0
		for _, v := range w {
			m += v
		}
		m /= float64(cfg.Window)
		var ss float64
		for _, v := range w {
			d := v - m
			ss += d * d
		}
		means[i] = m
		stds[i] = math.Sqrt(ss / float64(cfg.Window-1))
	}

	volCutoff := median(stds) * cfg.VolMultiplier

	out := make([]Regime, n)
	for i := 0; i < n; i++ {
		label := RegimeSideways
		switch {
		case stds[i] > volCutoff:
			label = RegimeHighVol
		case means[i] > cfg.TrendThreshold:
			label = RegimeBull
		case means[i] < -cfg.TrendThreshold:
			label = RegimeBear
		}
		out[i] = Regime{
			Timestamp:  returns[i+cfg.Window-1].Timestamp,
			Label:      label,
			MeanReturn: means[i],
			Volatility: stds[i],
		}
	}
	return out, nil
}

// Regime labels the trailing window closing at Timestamp, along with the
// window statistics that produced the label.
type Regime struct {
	Timestamp  time.Time   `json:"timestamp"`
	Label      RegimeLabel `json:"label"`
	MeanReturn float64     `json:"mean_return"`
	Volatility float64     `json:"volatility"`
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

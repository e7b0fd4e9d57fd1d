package analytics

import (
	"math"

	"github.com/quantdesk/quantdesk/internal/series"
)

// DefaultScales are the aggregation horizons for multi-scale variance.
var DefaultScales = []int{1, 5, 10, 20, 60}

// DefaultLags are the variance-ratio test horizons.
var DefaultLags = []int{2, 5, 10, 20}

// ScaleVariance is the variance of non-overlapping q-period aggregated
// returns at one scale. For a random walk the ratio to the 1-period variance
// grows linearly with the scale; Deviation normalizes the ratio by that
// theoretical growth.
type ScaleVariance struct {
	Scale     int     `json:"scale"`
	Variance  float64 `json:"variance"`
	VarRatio  float64 `json:"var_ratio"`
	Deviation float64 `json:"deviation"`
}

// MultiScaleVariance computes return variance at several aggregation scales,
// revealing scale-dependent volatility clustering. Scales longer than the
// series are skipped; nil scales means DefaultScales.
func MultiScaleVariance(returns series.ReturnSeries, scales []int) []ScaleVariance {
	if scales == nil {
		scales = DefaultScales
	}
	vals := returns.Values()
	base := sampleVariance(vals)

	var out []ScaleVariance
	for _, scale := range scales {
		if scale <= 0 || scale >= len(vals) {
			continue
		}
		agg := aggregate(vals, scale)
		if len(agg) < 2 {
			continue
		}
		v := sampleVariance(agg)
		ratio := 0.0
		if base > 0 {
			ratio = v / base
		}
		out = append(out, ScaleVariance{
			Scale:     scale,
			Variance:  v,
			VarRatio:  ratio,
			Deviation: ratio / float64(scale),
		})
	}
	return out
}

// VRResult is one Lo-MacKinlay variance-ratio observation: the ratio itself,
// the homoskedasticity-assuming z-statistic, its two-sided p-value, and the
// qualitative reading.
type VRResult struct {
	Lag            int     `json:"lag"`
	Ratio          float64 `json:"ratio"`
	ZStat          float64 `json:"z_stat"`
	PValue         float64 `json:"p_value"`
	Interpretation string  `json:"interpretation"`
}

// VarianceRatio runs the Lo-MacKinlay test at each lag: the variance of
// q-period returns over q times the 1-period variance. Under the random-walk
// null the ratio is 1 and the z-statistic is asymptotically standard normal.
// Ratios above 1 indicate positive autocorrelation (momentum), below 1
// negative autocorrelation (mean reversion). nil lags means DefaultLags.
func VarianceRatio(returns series.ReturnSeries, lags []int) []VRResult {
	if lags == nil {
		lags = DefaultLags
	}
	vals := returns.Values()
	n := len(vals)
	base := sampleVariance(vals)

	var out []VRResult
	for _, q := range lags {
		if q < 2 || q >= n {
			continue
		}
		agg := aggregate(vals, q)
		if len(agg) < 2 || base == 0 {
			continue
		}
		vr := sampleVariance(agg) / (float64(q) * base)

		se := math.Sqrt(2 * float64(q-1) / (3 * float64(q) * float64(n)))
		z := 0.0
		if se > 0 {
			z = (vr - 1) / se
		}
		out = append(out, VRResult{
			Lag:            q,
			Ratio:          vr,
			ZStat:          z,
			PValue:         twoSidedP(z),
			Interpretation: interpretVR(vr),
		})
	}
	return out
}

func interpretVR(vr float64) string {
	switch {
	case vr > 1.2:
		return "momentum"
	case vr < 0.8:
		return "mean_reversion"
	default:
		return "random_walk"
	}
}

// twoSidedP is the two-sided standard-normal p-value for z.
func twoSidedP(z float64) float64 {
	return math.Erfc(math.Abs(z) / math.Sqrt2)
}

// aggregate sums vals over consecutive non-overlapping blocks of length q.
func aggregate(vals []float64, q int) []float64 {
	var out []float64
	for i := 0; i+q <= len(vals); i += q {
		var s float64
		for _, v := range vals[i : i+q] {
			s += v
		}
		out = append(out, s)
	}
	return out
}

func sampleVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var m float64
	for _, x := range xs {
		m += x
	}
	m /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return ss / float64(len(xs)-1)
}

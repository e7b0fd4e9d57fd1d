// Package risk computes tail-loss and benchmark-relative statistics over
// aligned return series. VaR and CVaR use historical simulation (the
// empirical return distribution, not a fitted Normal) because realized
// return distributions are fat-tailed.
package risk

import (
	"math"
	"sort"

	"github.com/quantdesk/quantdesk/internal/series"
)

// MinOverlap is the minimum number of overlapping observations required for
// pairwise statistics against a benchmark.
const MinOverlap = 20

// VaR returns the (1-confidence) empirical quantile of the return
// distribution. At 95% on a 20-observation series this is exactly the worst
// observation: ceil(0.05*20) = 1st-ranked loss.
func VaR(returns []float64, confidence float64) float64 {
	n := len(returns)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, returns)
	sort.Float64s(sorted)
	idx := int(math.Ceil((1-confidence)*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// CVaR is the mean of returns at or below the VaR quantile.
func CVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	threshold := VaR(returns, confidence)
	var sum float64
	var n int
	for _, r := range returns {
		if r <= threshold {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Beta is cov(asset, benchmark) / var(benchmark) over their timestamp
// intersection. Fails with series.InsufficientOverlapError below MinOverlap
// common observations; a zero-variance benchmark yields 0.
func Beta(asset, benchmark series.ReturnSeries) (float64, error) {
	av, bv, _ := series.Intersect(asset, benchmark)
	if len(av) < MinOverlap {
		return 0, &series.InsufficientOverlapError{
			Op:        "risk.Beta",
			Required:  MinOverlap,
			Available: len(av),
		}
	}
	bVar := variance(bv)
	if bVar == 0 {
		return 0, nil
	}
	return covariance(av, bv) / bVar, nil
}

// Alpha is mean(asset) - beta*mean(benchmark) at the input periodicity.
func Alpha(asset, benchmark series.ReturnSeries) (float64, error) {
	beta, err := Beta(asset, benchmark)
	if err != nil {
		return 0, err
	}
	av, bv, _ := series.Intersect(asset, benchmark)
	return mean(av) - beta*mean(bv), nil
}

// Treynor is annualized excess return per unit of beta; 0 when beta is 0.
func Treynor(asset, benchmark series.ReturnSeries, periodsPerYear, riskFree float64) (float64, error) {
	beta, err := Beta(asset, benchmark)
	if err != nil {
		return 0, err
	}
	if beta == 0 {
		return 0, nil
	}
	av, _, _ := series.Intersect(asset, benchmark)
	annRet := mean(av) * periodsPerYear
	return (annRet - riskFree) / beta, nil
}

// Matrix is a symmetric correlation matrix in the caller's ticker order.
type Matrix struct {
	Tickers []string    `json:"tickers"`
	Values  [][]float64 `json:"values"`
}

// At returns the correlation between two tickers by name; ok is false for
// unknown tickers.
func (m Matrix) At(a, b string) (float64, bool) {
	ai, bi := -1, -1
	for i, t := range m.Tickers {
		if t == a {
			ai = i
		}
		if t == b {
			bi = i
		}
	}
	if ai < 0 || bi < 0 {
		return 0, false
	}
	return m.Values[ai][bi], true
}

// CorrelationMatrix computes pairwise Pearson correlations over the
// intersection-aligned return series, in the given ticker order. The
// diagonal is exactly 1.0 by construction; pairs involving a zero-variance
// series report 0.
func CorrelationMatrix(assetReturns map[string]series.ReturnSeries, order []string) (Matrix, error) {
	universe := make(map[string]series.ReturnSeries, len(order))
	for _, t := range order {
		rs, ok := assetReturns[t]
		if !ok {
			return Matrix{}, &series.MisalignmentError{Op: "risk.CorrelationMatrix", Detail: "no return series for ticker " + t}
		}
		universe[t] = rs
	}
	cols, stamps := series.IntersectAll(universe)
	if len(stamps) < 2 {
		return Matrix{}, &series.InsufficientOverlapError{Op: "risk.CorrelationMatrix", Required: 2, Available: len(stamps)}
	}

	m := Matrix{Tickers: order, Values: make([][]float64, len(order))}
	for i := range order {
		m.Values[i] = make([]float64, len(order))
		m.Values[i][i] = 1
	}
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			c := pearson(cols[order[i]], cols[order[j]])
			m.Values[i][j] = c
			m.Values[j][i] = c
		}
	}
	return m, nil
}

// DiversificationRatio is the weighted average of constituent volatilities
// over the realized portfolio volatility; 1.0 for a degenerate portfolio.
func DiversificationRatio(assetReturns map[string]series.ReturnSeries, weights map[string]float64) float64 {
	cols, stamps := series.IntersectAll(assetReturns)
	if len(stamps) < 2 {
		return 1
	}
	var weighted float64
	port := make([]float64, len(stamps))
	for t, col := range cols {
		w := weights[t]
		weighted += w * math.Sqrt(variance(col))
		for i, v := range col {
			port[i] += w * v
		}
	}
	pv := math.Sqrt(variance(port))
	if pv == 0 {
		return 1
	}
	return weighted / pv
}

// EffectiveAssets is the inverse Herfindahl index of the weights: the number
// of equally-weighted assets with the same concentration.
func EffectiveAssets(weights map[string]float64) float64 {
	var hhi float64
	for _, w := range weights {
		hhi += w * w
	}
	if hhi == 0 {
		return 0
	}
	return 1 / hhi
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return ss / float64(len(xs)-1)
}

func covariance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	ma, mb := mean(a), mean(b)
	var s float64
	for i := range a {
		s += (a[i] - ma) * (b[i] - mb)
	}
	return s / float64(len(a)-1)
}

func pearson(a, b []float64) float64 {
	va, vb := variance(a), variance(b)
	if va == 0 || vb == 0 {
		return 0
	}
	return covariance(a, b) / math.Sqrt(va*vb)
}

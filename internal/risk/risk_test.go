package risk

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/quantdesk/internal/series"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func returnsOf(values ...float64) series.ReturnSeries {
	out := make(series.ReturnSeries, len(values))
	for i, v := range values {
		out[i] = series.Point{Timestamp: day(i), Value: v}
	}
	return out
}

func TestVaR_TwentyObservationsAt95IsWorst(t *testing.T) {
	// ceil(0.05*20) = 1: the 95% historical VaR of 20 observations is
	// exactly the single worst one
	rets := make([]float64, 20)
	for i := range rets {
		rets[i] = float64(i) * 0.001 // 0.000 .. 0.019
	}
	rets[7] = -0.08

	assert.Equal(t, -0.08, VaR(rets, 0.95))
}

func TestVaR_99PicksDeeperQuantile(t *testing.T) {
	rets := make([]float64, 200)
	for i := range rets {
		rets[i] = -float64(i+1) * 0.001 // -0.001 .. -0.200
	}
	// ceil(0.05*200)-1 = 9 -> 10th worst; ceil(0.01*200)-1 = 1 -> 2nd worst
	assert.InDelta(t, -0.191, VaR(rets, 0.95), 1e-12)
	assert.InDelta(t, -0.199, VaR(rets, 0.99), 1e-12)
	assert.LessOrEqual(t, VaR(rets, 0.99), VaR(rets, 0.95))
}

func TestVaR_Empty(t *testing.T) {
	assert.Equal(t, 0.0, VaR(nil, 0.95))
}

func TestCVaR_AtMostVaR(t *testing.T) {
	rets := []float64{-0.10, -0.05, -0.02, 0.01, 0.01, 0.02, 0.02, 0.03,
		0.01, 0.00, -0.01, 0.02, 0.01, 0.03, -0.03, 0.02, 0.01, 0.00, 0.02, 0.01}
	v := VaR(rets, 0.95)
	cv := CVaR(rets, 0.95)
	assert.LessOrEqual(t, cv, v)
	assert.Equal(t, -0.10, cv) // the single worst observation is the whole tail
}

func TestBeta_ScaledBenchmark(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bench := make(series.ReturnSeries, 100)
	asset := make(series.ReturnSeries, 100)
	for i := range bench {
		r := rng.NormFloat64() * 0.01
		bench[i] = series.Point{Timestamp: day(i), Value: r}
		asset[i] = series.Point{Timestamp: day(i), Value: 1.5 * r}
	}

	beta, err := Beta(asset, bench)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, beta, 1e-9)
}

func TestBeta_InsufficientOverlap(t *testing.T) {
	asset := returnsOf(0.01, 0.02, 0.03)
	bench := returnsOf(0.01, 0.01, 0.01)

	_, err := Beta(asset, bench)
	var overlapErr *series.InsufficientOverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Equal(t, MinOverlap, overlapErr.Required)
	assert.Equal(t, 3, overlapErr.Available)
}

func TestBeta_FlatBenchmarkIsZero(t *testing.T) {
	asset := make(series.ReturnSeries, 30)
	bench := make(series.ReturnSeries, 30)
	for i := range asset {
		asset[i] = series.Point{Timestamp: day(i), Value: float64(i%3) * 0.01}
		bench[i] = series.Point{Timestamp: day(i), Value: 0.005}
	}
	beta, err := Beta(asset, bench)
	require.NoError(t, err)
	assert.Equal(t, 0.0, beta)
}

func TestAlpha_ExactForLinearRelation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	bench := make(series.ReturnSeries, 120)
	asset := make(series.ReturnSeries, 120)
	for i := range bench {
		r := rng.NormFloat64() * 0.01
		bench[i] = series.Point{Timestamp: day(i), Value: r}
		asset[i] = series.Point{Timestamp: day(i), Value: 0.0002 + 1.2*r}
	}

	alpha, err := Alpha(asset, bench)
	require.NoError(t, err)
	assert.InDelta(t, 0.0002, alpha, 1e-9)
}

func TestTreynor(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	bench := make(series.ReturnSeries, 100)
	asset := make(series.ReturnSeries, 100)
	for i := range bench {
		r := rng.NormFloat64() * 0.01
		bench[i] = series.Point{Timestamp: day(i), Value: r}
		asset[i] = series.Point{Timestamp: day(i), Value: 2 * r}
	}

	tr, err := Treynor(asset, bench, 252, 0)
	require.NoError(t, err)

	av := asset.Values()
	var sum float64
	for _, v := range av {
		sum += v
	}
	wantAnn := sum / float64(len(av)) * 252
	assert.InDelta(t, wantAnn/2, tr, 1e-9)
}

func TestCorrelationMatrix(t *testing.T) {
	a := make(series.ReturnSeries, 50)
	b := make(series.ReturnSeries, 50)
	c := make(series.ReturnSeries, 50)
	for i := range a {
		v := float64(i%7)*0.01 - 0.03
		a[i] = series.Point{Timestamp: day(i), Value: v}
		b[i] = series.Point{Timestamp: day(i), Value: -v}      // perfectly inverse
		c[i] = series.Point{Timestamp: day(i), Value: 2*v + 1} // affine copy
	}

	m, err := CorrelationMatrix(map[string]series.ReturnSeries{"A": a, "B": b, "C": c}, []string{"A", "B", "C"})
	require.NoError(t, err)

	// exact ones on the diagonal
	for i := range m.Tickers {
		assert.Equal(t, 1.0, m.Values[i][i])
	}
	// symmetry
	for i := range m.Tickers {
		for j := range m.Tickers {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
		}
	}

	ab, ok := m.At("A", "B")
	require.True(t, ok)
	assert.InDelta(t, -1.0, ab, 1e-9)

	ac, ok := m.At("A", "C")
	require.True(t, ok)
	assert.InDelta(t, 1.0, ac, 1e-9)

	_, ok = m.At("A", "Z")
	assert.False(t, ok)
}

func TestCorrelationMatrix_MissingTicker(t *testing.T) {
	_, err := CorrelationMatrix(map[string]series.ReturnSeries{"A": returnsOf(0.01, 0.02)}, []string{"A", "B"})
	var misErr *series.MisalignmentError
	require.ErrorAs(t, err, &misErr)
}

func TestDiversificationRatio(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	a := make(series.ReturnSeries, 200)
	b := make(series.ReturnSeries, 200)
	for i := range a {
		a[i] = series.Point{Timestamp: day(i), Value: rng.NormFloat64() * 0.01}
		b[i] = series.Point{Timestamp: day(i), Value: rng.NormFloat64() * 0.01}
	}
	weights := map[string]float64{"A": 0.5, "B": 0.5}

	// independent assets diversify: ratio must exceed 1
	dr := DiversificationRatio(map[string]series.ReturnSeries{"A": a, "B": b}, weights)
	assert.Greater(t, dr, 1.0)

	// a portfolio of one perfectly-correlated pair does not
	dr = DiversificationRatio(map[string]series.ReturnSeries{"A": a, "B": a}, weights)
	assert.InDelta(t, 1.0, dr, 1e-9)
}

func TestEffectiveAssets(t *testing.T) {
	assert.InDelta(t, 4.0, EffectiveAssets(map[string]float64{"A": 0.25, "B": 0.25, "C": 0.25, "D": 0.25}), 1e-12)
	assert.InDelta(t, 1.0, EffectiveAssets(map[string]float64{"A": 1}), 1e-12)
	// concentration shrinks the effective count below the nominal one
	got := EffectiveAssets(map[string]float64{"A": 0.7, "B": 0.2, "C": 0.1})
	assert.Greater(t, got, 1.0)
	assert.Less(t, got, 3.0)
	assert.Equal(t, 0.0, EffectiveAssets(nil))
}

package analytics

import (
	"math"
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

func returnsFrom(vals []float64) series.ReturnSeries {
	out := make(series.ReturnSeries, len(vals))
	for i, v := range vals {
		out[i] = series.Point{Timestamp: day(i), Value: v}
	}
	return out
}

// randomWalkReturns draws iid Gaussian returns with the given drift.
func randomWalkReturns(n int, drift, vol float64, seed int64) series.ReturnSeries {
	rng := rand.New(rand.NewSource(seed))
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = drift + vol*rng.NormFloat64()
	}
	return returnsFrom(vals)
}

// trendingReturns builds a strongly persistent series: an AR(1) with a
// coefficient near one, so consecutive moves reinforce each other.
func trendingReturns(n int, seed int64) series.ReturnSeries {
	rng := rand.New(rand.NewSource(seed))
	vals := make([]float64, n)
	prev := 0.0
	for i := range vals {
		prev = 0.9*prev + 0.003*rng.NormFloat64()
		vals[i] = prev
	}
	return returnsFrom(vals)
}

// meanRevertingReturns alternates sign aggressively: each move mostly undoes
// the previous one.
func meanRevertingReturns(n int, seed int64) series.ReturnSeries {
	rng := rand.New(rand.NewSource(seed))
	vals := make([]float64, n)
	prev := 0.0
	for i := range vals {
		v := -0.8*prev + 0.003*rng.NormFloat64()
		vals[i] = v
		prev = v
	}
	return returnsFrom(vals)
}

func TestHurst_InsufficientHistory(t *testing.T) {
	_, err := Hurst(randomWalkReturns(50, 0, 0.01, 1), DefaultHurstConfig())
	var histErr *series.InsufficientHistoryError
	require.ErrorAs(t, err, &histErr)
	assert.Equal(t, 100, histErr.Required)
}

func TestHurst_TrendingAboveMeanReverting(t *testing.T) {
	cfg := DefaultHurstConfig()

	trending, err := Hurst(trendingReturns(1024, 42), cfg)
	require.NoError(t, err)

	reverting, err := Hurst(meanRevertingReturns(1024, 42), cfg)
	require.NoError(t, err)

	assert.Greater(t, trending.Exponent, reverting.Exponent)
	assert.Greater(t, trending.Exponent, 0.55)
	assert.Less(t, reverting.Exponent, 0.45)
	assert.Equal(t, "trending", trending.Classification)
	assert.Equal(t, "mean_reverting", reverting.Classification)
}

func TestHurst_WindowsArePowersOfTwo(t *testing.T) {
	res, err := Hurst(randomWalkReturns(512, 0, 0.01, 5), DefaultHurstConfig())
	require.NoError(t, err)
	require.NotEmpty(t, res.Windows)

	assert.Equal(t, 8, res.Windows[0].Window)
	for i := 1; i < len(res.Windows); i++ {
		assert.Equal(t, res.Windows[i-1].Window*2, res.Windows[i].Window)
	}
	assert.LessOrEqual(t, res.Windows[len(res.Windows)-1].Window, 512/4)
}

func TestPersistenceAssessment(t *testing.T) {
	cfg := DefaultHurstConfig()
	assert.Contains(t, PersistenceAssessment(0.7, cfg), "persistence")
	assert.Contains(t, PersistenceAssessment(0.3, cfg), "anti-persistence")
	assert.Contains(t, PersistenceAssessment(0.5, cfg), "random walk")
}

func TestVarianceRatio_RandomWalkNearOne(t *testing.T) {
	results := VarianceRatio(randomWalkReturns(4000, 0, 0.01, 99), nil)
	require.Len(t, results, len(DefaultLags))

	for i, r := range results {
		assert.Equal(t, DefaultLags[i], r.Lag)
		assert.InDelta(t, 1.0, r.Ratio, 0.5, "lag %d", r.Lag)
		assert.GreaterOrEqual(t, r.PValue, 0.0)
		assert.LessOrEqual(t, r.PValue, 1.0)
	}
	// the shortest lag has the most blocks and the tightest estimate
	assert.InDelta(t, 1.0, results[0].Ratio, 0.2)
	assert.Equal(t, "random_walk", results[0].Interpretation)
}

func TestVarianceRatio_MeanRevertingBelowOne(t *testing.T) {
	results := VarianceRatio(meanRevertingReturns(2000, 7), []int{2, 5})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Less(t, r.Ratio, 0.8)
		assert.Equal(t, "mean_reversion", r.Interpretation)
		assert.Less(t, r.ZStat, 0.0)
	}
}

func TestVarianceRatio_SkipsUnusableLags(t *testing.T) {
	results := VarianceRatio(randomWalkReturns(15, 0, 0.01, 3), []int{2, 200})
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Lag)
}

func TestTwoSidedP(t *testing.T) {
	assert.InDelta(t, 1.0, twoSidedP(0), 1e-12)
	assert.InDelta(t, 0.0455, twoSidedP(2), 1e-3)
	assert.Greater(t, twoSidedP(-2.0), 0.0)
	assert.Equal(t, twoSidedP(2), twoSidedP(-2))
}

func TestMultiScaleVariance_RandomWalkScalesLinearly(t *testing.T) {
	results := MultiScaleVariance(randomWalkReturns(6000, 0, 0.01, 17), nil)
	require.NotEmpty(t, results)

	for _, r := range results {
		if r.Scale == 1 {
			assert.InDelta(t, 1.0, r.VarRatio, 1e-9)
			continue
		}
		// variance at scale q is about q times the base variance
		assert.InDelta(t, 1.0, r.Deviation, 0.5, "scale %d", r.Scale)
	}
}

func TestDetectRegimes_InsufficientHistory(t *testing.T) {
	_, err := DetectRegimes(randomWalkReturns(10, 0, 0.01, 1), DefaultRegimeConfig())
	var histErr *series.InsufficientHistoryError
	require.ErrorAs(t, err, &histErr)
	assert.Equal(t, 60, histErr.Required)
}

func TestDetectRegimes_LabelsTrends(t *testing.T) {
	cfg := RegimeConfig{Window: 20, TrendThreshold: 0.0005, VolMultiplier: 10}

	// strong steady up-drift, negligible noise
	bull := make([]float64, 60)
	for i := range bull {
		bull[i] = 0.005 + 0.0001*math.Sin(float64(i))
	}
	regimes, err := DetectRegimes(returnsFrom(bull), cfg)
	require.NoError(t, err)
	require.Len(t, regimes, 41)
	for _, r := range regimes {
		assert.Equal(t, RegimeBull, r.Label)
	}

	bear := make([]float64, 60)
	for i := range bear {
		bear[i] = -0.005 + 0.0001*math.Sin(float64(i))
	}
	regimes, err = DetectRegimes(returnsFrom(bear), cfg)
	require.NoError(t, err)
	for _, r := range regimes {
		assert.Equal(t, RegimeBear, r.Label)
	}
}

func TestDetectRegimes_HighVolTakesPrecedence(t *testing.T) {
	cfg := RegimeConfig{Window: 20, TrendThreshold: 0.0005, VolMultiplier: 1.5}

	// calm drifting first half, violent second half: the violent windows
	// must be labeled high_volatility even though their mean is bullish
	vals := make([]float64, 120)
	for i := 0; i < 60; i++ {
		vals[i] = 0.001 + 0.0005*math.Sin(float64(i))
	}
	rng := rand.New(rand.NewSource(23))
	for i := 60; i < 120; i++ {
		vals[i] = 0.002 + 0.05*rng.NormFloat64()
	}

	regimes, err := DetectRegimes(returnsFrom(vals), cfg)
	require.NoError(t, err)

	last := regimes[len(regimes)-1]
	assert.Equal(t, RegimeHighVol, last.Label)
	assert.Greater(t, last.Volatility, 0.01)

	// window stamps close on the last observation of each window
	assert.True(t, regimes[0].Timestamp.Equal(day(19)))
	assert.True(t, last.Timestamp.Equal(day(119)))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
	assert.Equal(t, 0.0, median(nil))
}

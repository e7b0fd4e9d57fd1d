package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/quantdesk/internal/series"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func pricesFromCloses(closes ...float64) series.PriceSeries {
	bars := make([]series.Bar, len(closes))
	for i, c := range closes {
		bars[i] = series.Bar{Timestamp: day(i), Close: c}
	}
	return series.PriceSeries{Ticker: "TEST", Bars: bars}
}

func positions(values ...float64) series.PositionSeries {
	out := make(series.PositionSeries, len(values))
	for i, v := range values {
		out[i] = series.Point{Timestamp: day(i), Value: v}
	}
	return out
}

func TestSimulate_FullyInvestedTracksPrices(t *testing.T) {
	prices := pricesFromCloses(100, 102, 101, 105)
	curve, err := Simulate(prices, positions(1, 1, 1, 1), 100)
	require.NoError(t, err)

	require.Len(t, curve, 4)
	assert.InDelta(t, 100.0, curve[0].Value, 1e-9)
	assert.InDelta(t, 102.0, curve[1].Value, 1e-9)
	assert.InDelta(t, 101.0, curve[2].Value, 1e-9)
	assert.InDelta(t, 105.0, curve[3].Value, 1e-9)
}

func TestSimulate_OneBarExecutionLag(t *testing.T) {
	// long only on the last bar: that position earns nothing, because it is
	// applied to the move after it was decided
	prices := pricesFromCloses(100, 110, 121)
	curve, err := Simulate(prices, positions(0, 0, 1), 100)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, curve[2].Value, 1e-9)

	// long from the first bar captures both moves
	curve, err = Simulate(prices, positions(1, 1, 1), 100)
	require.NoError(t, err)
	assert.InDelta(t, 121.0, curve[2].Value, 1e-9)
}

func TestSimulate_FlatPositionHoldsEquity(t *testing.T) {
	prices := pricesFromCloses(100, 50, 25)
	curve, err := Simulate(prices, positions(0, 0, 0), 1000)
	require.NoError(t, err)
	for _, p := range curve {
		assert.Equal(t, 1000.0, p.Value)
	}
}

func TestSimulate_RuinFloorsAtZero(t *testing.T) {
	// a 2x levered position into a -60% bar wipes the account; equity must
	// clamp at zero and stay there through the recovery
	prices := pricesFromCloses(100, 40, 80, 160)
	curve, err := Simulate(prices, positions(2, 2, 2, 2), 100)
	require.NoError(t, err)

	assert.Equal(t, 0.0, curve[1].Value)
	assert.Equal(t, 0.0, curve[2].Value)
	assert.Equal(t, 0.0, curve[3].Value)
}

func TestSimulate_MisalignedLength(t *testing.T) {
	_, err := Simulate(pricesFromCloses(100, 101, 102), positions(1, 1), 100)
	var misErr *series.MisalignmentError
	require.ErrorAs(t, err, &misErr)
}

func TestSimulate_MisalignedTimestamps(t *testing.T) {
	prices := pricesFromCloses(100, 101)
	pos := positions(1, 1)
	pos[1].Timestamp = day(5)

	_, err := Simulate(prices, pos, 100)
	var misErr *series.MisalignmentError
	require.ErrorAs(t, err, &misErr)
	assert.Contains(t, misErr.Error(), "index 1")
}

func TestSimulate_InvalidBase(t *testing.T) {
	prices := pricesFromCloses(100, 101)
	for _, base := range []float64{0, -100} {
		_, err := Simulate(prices, positions(1, 1), base)
		var cfgErr *series.ConfigError
		require.ErrorAs(t, err, &cfgErr)
	}
}

func TestSimulate_EmptySeries(t *testing.T) {
	_, err := Simulate(series.PriceSeries{}, nil, 100)
	var histErr *series.InsufficientHistoryError
	require.ErrorAs(t, err, &histErr)
}

func TestStrategyReturns_LaggedPositionTimesReturn(t *testing.T) {
	prices := pricesFromCloses(100, 110, 99)
	rs, err := StrategyReturns(prices, positions(1, 0.5, 1))
	require.NoError(t, err)

	require.Len(t, rs, 2)
	assert.InDelta(t, 0.10, rs[0].Value, 1e-12)
	assert.InDelta(t, 0.5*(99.0/110.0-1), rs[1].Value, 1e-12)
	assert.True(t, rs[0].Timestamp.Equal(day(1)))
}

func TestStrategyReturns_SingleBar(t *testing.T) {
	rs, err := StrategyReturns(pricesFromCloses(100), positions(1))
	require.NoError(t, err)
	assert.Nil(t, rs)
}

func TestSimulate_ShortPositionGainsOnDecline(t *testing.T) {
	prices := pricesFromCloses(100, 90)
	curve, err := Simulate(prices, positions(-1, -1), 100)
	require.NoError(t, err)
	assert.InDelta(t, 110.0, curve[1].Value, 1e-9)
}

// Package sim turns a position series and its originating price series into
// an equity curve by compounding per-bar returns. The position decided at bar
// t-1 earns the price change over (t-1, t], a mandatory one-bar execution
// lag that models order submission and rules out same-bar look-ahead.
// Transaction costs and slippage are deliberately not modeled.
package sim

import (
	"fmt"

	"github.com/quantdesk/quantdesk/internal/series"
)

// Simulate compounds positions[t-1] * simpleReturn[t] into an equity curve
// starting at baseValue. Equity is floored at zero: once a leveraged strategy
// is ruined, compounding halts and the curve stays flat at zero, driving
// drawdown to -100%. Prices and positions must share the exact timestamp
// domain or the call fails with series.MisalignmentError.
func Simulate(prices series.PriceSeries, positions series.PositionSeries, baseValue float64) (series.EquityCurve, error) {
	if err := align(prices, positions); err != nil {
		return nil, err
	}
	if baseValue <= 0 {
		return nil, &series.ConfigError{Op: "sim.Simulate", Detail: "base value must be positive"}
	}

	curve := make(series.EquityCurve, prices.Len())
	equity := baseValue
	curve[0] = series.Point{Timestamp: prices.Bars[0].Timestamp, Value: equity}
	for t := 1; t < prices.Len(); t++ {
		prev := prices.Bars[t-1].Close
		if equity > 0 && prev != 0 {
			r := prices.Bars[t].Close/prev - 1
			equity *= 1 + positions[t-1].Value*r
			if equity < 0 {
				equity = 0
			}
		}
		curve[t] = series.Point{Timestamp: prices.Bars[t].Timestamp, Value: equity}
	}
	return curve, nil
}

// StrategyReturns derives the per-bar strategy return series implied by the
// lagged positions: positions[t-1] applied to the close-to-close return at t.
func StrategyReturns(prices series.PriceSeries, positions series.PositionSeries) (series.ReturnSeries, error) {
	if err := align(prices, positions); err != nil {
		return nil, err
	}
	if prices.Len() < 2 {
		return nil, nil
	}
	out := make(series.ReturnSeries, 0, prices.Len()-1)
	for t := 1; t < prices.Len(); t++ {
		prev := prices.Bars[t-1].Close
		var r float64
		if prev != 0 {
			r = positions[t-1].Value * (prices.Bars[t].Close/prev - 1)
		}
		out = append(out, series.Point{Timestamp: prices.Bars[t].Timestamp, Value: r})
	}
	return out, nil
}

func align(prices series.PriceSeries, positions series.PositionSeries) error {
	if prices.Len() == 0 {
		return &series.InsufficientHistoryError{Op: "sim.Simulate", Required: 1, Available: 0}
	}
	if len(positions) != prices.Len() {
		return &series.MisalignmentError{
			Op:     "sim.Simulate",
			Detail: fmt.Sprintf("%d bars vs %d positions", prices.Len(), len(positions)),
		}
	}
	for i, b := range prices.Bars {
		if !b.Timestamp.Equal(positions[i].Timestamp) {
			return &series.MisalignmentError{
				Op:     "sim.Simulate",
				Detail: fmt.Sprintf("timestamp mismatch at index %d: %s vs %s", i, b.Timestamp, positions[i].Timestamp),
			}
		}
	}
	return nil
}

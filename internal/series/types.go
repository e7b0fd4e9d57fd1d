// Package series defines the time-series data model shared by the analytics
// pipeline: OHLCV price series, position series, return series, and equity
// curves. All series are ordered by strictly increasing timestamp and are
// treated as immutable once constructed; each pipeline stage returns a new
// series rather than mutating its input.
package series

import (
	"math"
	"strconv"
	"time"
)

// Bar is a single OHLCV observation.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries is the ordered bar history for one instrument. Bars must be
// chronologically sorted with no duplicate timestamps; gaps are preserved as
// absence, never interpolated.
type PriceSeries struct {
	Ticker string `json:"ticker"`
	Bars   []Bar  `json:"bars"`
}

// Point is a (timestamp, value) observation used by the derived series types.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// PositionSeries holds one position weight per bar, in [-1, 1]. Produced by
// the signal engine and consumed exactly once by the simulator.
type PositionSeries []Point

// ReturnSeries holds one period return per bar transition.
type ReturnSeries []Point

// EquityCurve holds cumulative compounded value, starting at a caller-supplied
// base.
type EquityCurve []Point

// Len returns the number of bars.
func (p PriceSeries) Len() int { return len(p.Bars) }

// Validate checks the strictly-increasing-timestamp invariant.
func (p PriceSeries) Validate() error {
	for i := 1; i < len(p.Bars); i++ {
		if !p.Bars[i].Timestamp.After(p.Bars[i-1].Timestamp) {
			return &MisalignmentError{
				Op:     "series.Validate",
				Detail: "timestamps not strictly increasing at index " + strconv.Itoa(i),
			}
		}
	}
	return nil
}

// Last returns the most recent bar. ok is false for an empty series.
func (p PriceSeries) Last() (Bar, bool) {
	if len(p.Bars) == 0 {
		return Bar{}, false
	}
	return p.Bars[len(p.Bars)-1], true
}

// Closes returns the close prices in bar order.
func (p PriceSeries) Closes() []float64 {
	out := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.Close
	}
	return out
}

// Values extracts the value column of a return series.
func (r ReturnSeries) Values() []float64 { return pointValues(r) }

// Values extracts the value column of an equity curve.
func (e EquityCurve) Values() []float64 { return pointValues(e) }

// Values extracts the value column of a position series.
func (p PositionSeries) Values() []float64 { return pointValues(p) }

func pointValues(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}

// Returns derives the simple-return series from consecutive closes. The
// result has one point per bar transition, stamped with the later bar's
// timestamp.
func (p PriceSeries) Returns() ReturnSeries {
	if len(p.Bars) < 2 {
		return nil
	}
	out := make(ReturnSeries, 0, len(p.Bars)-1)
	for i := 1; i < len(p.Bars); i++ {
		prev := p.Bars[i-1].Close
		var r float64
		if prev != 0 {
			r = p.Bars[i].Close/prev - 1
		}
		out = append(out, Point{Timestamp: p.Bars[i].Timestamp, Value: r})
	}
	return out
}

// LogReturns derives the log-return series from consecutive closes.
func (p PriceSeries) LogReturns() ReturnSeries {
	simple := p.Returns()
	out := make(ReturnSeries, len(simple))
	for i, pt := range simple {
		out[i] = Point{Timestamp: pt.Timestamp, Value: math.Log1p(pt.Value)}
	}
	return out
}

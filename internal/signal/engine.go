// Package signal converts a price series into a position series under a named
// strategy rule. Every strategy is a pure function of the trailing window
// ending at each bar: the position assigned to bar t is computable from bars
// <= t only. That no-look-ahead property is the load-bearing contract of the
// whole backtest: the simulator applies the position with a one-bar lag, so
// any future information leaking into a position silently inflates results.
package signal

import (
	"fmt"
	"sort"

	"github.com/quantdesk/quantdesk/internal/series"
)

// Spec identifies a strategy and its numeric parameters. Strategies are
// dispatched through a single lookup table keyed by Kind, keeping the
// no-look-ahead contract auditable per variant.
type Spec struct {
	Kind   string             `yaml:"kind" json:"kind"`
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
}

type params map[string]float64

func (p params) get(name string, def float64) float64 {
	if p == nil {
		return def
	}
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

func (p params) getInt(name string, def int) int {
	return int(p.get(name, float64(def)))
}

type definition struct {
	minBars  func(p params) int
	generate func(closes, highs []float64, prices series.PriceSeries, p params) []float64
}

var strategies = map[string]definition{
	"buy_hold":            {minBars: func(params) int { return 1 }, generate: genBuyHold},
	"trend":               {minBars: func(p params) int { return p.getInt("window", 50) }, generate: genTrend},
	"golden_cross":        {minBars: func(p params) int { return p.getInt("slow", 200) }, generate: genGoldenCross},
	"volatility_breakout": {minBars: func(p params) int { return p.getInt("window", 20) + 1 }, generate: genVolBreakout},
	"rsi_oversold":        {minBars: func(p params) int { return p.getInt("period", 14) + 1 }, generate: genRSI},
	"macd_cross":          {minBars: func(p params) int { return p.getInt("slow", 26) + p.getInt("signal", 9) }, generate: genMACD},
	"end_of_month":        {minBars: func(params) int { return 1 }, generate: genEndOfMonth},
}

// Kinds returns the registered strategy names, sorted.
func Kinds() []string {
	out := make([]string, 0, len(strategies))
	for k := range strategies {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GeneratePositions runs the named strategy over the price series and returns
// one position weight per bar, on the same timestamp domain. It fails with
// series.ConfigError for an unknown strategy and series.InsufficientHistoryError
// when the series is shorter than the strategy's minimum lookback. It never
// silently produces a degraded signal.
func GeneratePositions(prices series.PriceSeries, spec Spec) (series.PositionSeries, error) {
	def, ok := strategies[spec.Kind]
	if !ok {
		return nil, &series.ConfigError{
			Op:     "signal.GeneratePositions",
			Detail: fmt.Sprintf("unknown strategy %q (known: %v)", spec.Kind, Kinds()),
		}
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	p := params(spec.Params)
	if need := def.minBars(p); prices.Len() < need {
		return nil, &series.InsufficientHistoryError{
			Op:        "signal." + spec.Kind,
			Required:  need,
			Available: prices.Len(),
		}
	}

	closes := prices.Closes()
	highs := make([]float64, prices.Len())
	for i, b := range prices.Bars {
		highs[i] = b.High
	}
	weights := def.generate(closes, highs, prices, p)

	out := make(series.PositionSeries, prices.Len())
	for i, b := range prices.Bars {
		out[i] = series.Point{Timestamp: b.Timestamp, Value: weights[i]}
	}
	return out, nil
}

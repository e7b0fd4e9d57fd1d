package signal

import (
	"math"
	"time"

	"github.com/quantdesk/quantdesk/internal/series"
)

// genBuyHold stays fully invested from the first bar onward.
func genBuyHold(closes, _ []float64, _ series.PriceSeries, _ params) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = 1
	}
	return out
}

// genTrend is long whenever the close sits above its trailing moving average.
func genTrend(closes, _ []float64, _ series.PriceSeries, p params) []float64 {
	window := p.getInt("window", 50)
	ma := sma(closes, window)
	out := make([]float64, len(closes))
	for i := range closes {
		if !math.IsNaN(ma[i]) && closes[i] > ma[i] {
			out[i] = 1
		}
	}
	return out
}

// genGoldenCross is long while the fast moving average sits above the slow
// one. Exact equality leaves the prior position unchanged, which suppresses
// signal chatter when the averages touch.
func genGoldenCross(closes, _ []float64, _ series.PriceSeries, p params) []float64 {
	fast := p.getInt("fast", 50)
	slow := p.getInt("slow", 200)
	shortSide := p.get("short", 0) != 0
	fastMA := sma(closes, fast)
	slowMA := sma(closes, slow)

	out := make([]float64, len(closes))
	pos := 0.0
	for i := range closes {
		if math.IsNaN(fastMA[i]) || math.IsNaN(slowMA[i]) {
			out[i] = 0
			continue
		}
		switch {
		case fastMA[i] > slowMA[i]:
			pos = 1
		case fastMA[i] < slowMA[i]:
			if shortSide {
				pos = -1
			} else {
				pos = 0
			}
		}
		// equal: hold prior position
		out[i] = pos
	}
	return out
}

// genVolBreakout enters long when the close clears the trailing high-water
// mark plus a volatility-scaled buffer, and exits when the close falls back
// under the trailing mean. A flat trailing window produces a zero buffer,
// never NaN.
func genVolBreakout(closes, highs []float64, _ series.PriceSeries, p params) []float64 {
	window := p.getInt("window", 20)
	k := p.get("k", 0.5)
	highWater := rollingMax(highs, window)
	vol := rollingStd(closes, window)
	mean := sma(closes, window)

	out := make([]float64, len(closes))
	pos := 0.0
	for i := range closes {
		if math.IsNaN(highWater[i]) || math.IsNaN(vol[i]) {
			out[i] = 0
			continue
		}
		upper := highWater[i] + k*vol[i]
		// trailing mean of the bars before i; sma is inclusive of i, so
		// shift by one bar
		lower := math.NaN()
		if i > 0 && !math.IsNaN(mean[i-1]) {
			lower = mean[i-1]
		}
		switch {
		case closes[i] > upper:
			pos = 1
		case pos == 1 && !math.IsNaN(lower) && closes[i] < lower:
			pos = 0
		}
		out[i] = pos
	}
	return out
}

// genRSI enters long when Wilder RSI drops below the oversold threshold and
// exits once it recovers above the exit threshold.
func genRSI(closes, _ []float64, _ series.PriceSeries, p params) []float64 {
	period := p.getInt("period", 14)
	oversold := p.get("oversold", 30)
	exit := p.get("exit", 50)
	rsi := wilderRSI(closes, period)

	out := make([]float64, len(closes))
	pos := 0.0
	for i := range closes {
		if math.IsNaN(rsi[i]) {
			out[i] = 0
			continue
		}
		switch {
		case rsi[i] < oversold:
			pos = 1
		case rsi[i] > exit:
			pos = 0
		}
		out[i] = pos
	}
	return out
}

// genMACD is long while the MACD line sits above its signal line. Equality
// holds the prior position, as with the golden cross.
func genMACD(closes, _ []float64, _ series.PriceSeries, p params) []float64 {
	fast := p.getInt("fast", 12)
	slow := p.getInt("slow", 26)
	signalSpan := p.getInt("signal", 9)
	shortSide := p.get("short", 0) != 0

	emaFast := ema(closes, fast)
	emaSlow := ema(closes, slow)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	sig := ema(macd, signalSpan)

	// Ignore the EMA warm-up region where both averages are still dominated
	// by the seed value.
	warmup := slow + signalSpan - 1

	out := make([]float64, len(closes))
	pos := 0.0
	for i := range closes {
		if i < warmup {
			out[i] = 0
			continue
		}
		switch {
		case macd[i] > sig[i]:
			pos = 1
		case macd[i] < sig[i]:
			if shortSide {
				pos = -1
			} else {
				pos = 0
			}
		}
		out[i] = pos
	}
	return out
}

// genEndOfMonth holds a position only during the trailing `days` calendar
// days of each month. The rule is calendar-driven, so it needs no price
// lookback at all.
func genEndOfMonth(closes, _ []float64, prices series.PriceSeries, p params) []float64 {
	days := p.getInt("days", 3)
	out := make([]float64, len(closes))
	for i, b := range prices.Bars {
		if b.Timestamp.Day() > daysInMonth(b.Timestamp)-days {
			out[i] = 1
		}
	}
	return out
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

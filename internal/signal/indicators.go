package signal

import "math"

// sma computes the simple moving average over the trailing window. Entries
// before the window is full are NaN.
func sma(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || len(values) < window {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// ema computes the span-style exponential moving average seeded at the first
// value (alpha = 2/(span+1)).
func ema(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// wilderRSI computes the relative strength index with Wilder's smoothing.
// Entries before index `period` are NaN. A window with zero average loss
// maps to RSI 100 by convention.
func wilderRSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) <= period {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// rollingMax returns the max over the `window` values ending at i-1, i.e. the
// trailing high-water mark excluding the current bar. NaN until enough bars.
func rollingMax(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := window; i < len(values); i++ {
		m := values[i-window]
		for j := i - window + 1; j < i; j++ {
			if values[j] > m {
				m = values[j]
			}
		}
		out[i] = m
	}
	return out
}

// rollingStd returns the sample standard deviation over the `window` values
// ending at i-1, excluding the current bar. A flat window yields exactly 0.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := window; i < len(values); i++ {
		var sum float64
		for j := i - window; j < i; j++ {
			sum += values[j]
		}
		mean := sum / float64(window)
		var ss float64
		for j := i - window; j < i; j++ {
			d := values[j] - mean
			ss += d * d
		}
		if window > 1 {
			out[i] = math.Sqrt(ss / float64(window-1))
		} else {
			out[i] = 0
		}
	}
	return out
}

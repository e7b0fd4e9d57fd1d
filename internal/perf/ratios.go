package perf

import (
	"math"

	"github.com/quantdesk/quantdesk/internal/series"
)

// TotalReturn is final/initial - 1 over the whole curve.
func TotalReturn(curve series.EquityCurve) float64 {
	if len(curve) < 2 || curve[0].Value == 0 {
		return 0
	}
	return curve[len(curve)-1].Value/curve[0].Value - 1
}

// AnnualizedReturn is the geometric growth rate scaled to one year:
// (final/initial)^(periodsPerYear/n) - 1 over n elapsed periods.
func AnnualizedReturn(curve series.EquityCurve, cfg Config) float64 {
	n := len(curve) - 1
	if n < 1 || curve[0].Value <= 0 {
		return 0
	}
	final := curve[len(curve)-1].Value
	if final <= 0 {
		return -1
	}
	return math.Pow(final/curve[0].Value, cfg.PeriodsPerYear/float64(n)) - 1
}

// AnnualizedVolatility is the sample standard deviation of period returns
// scaled by sqrt(periodsPerYear).
func AnnualizedVolatility(returns []float64, cfg Config) float64 {
	return stddev(returns) * math.Sqrt(cfg.PeriodsPerYear)
}

// Sharpe is mean excess return over return standard deviation, annualized.
// A zero-variance series has no risk-adjusted edge to report: the result is
// exactly 0, not NaN.
func Sharpe(returns []float64, cfg Config) float64 {
	sd := stddev(returns)
	if sd == 0 {
		return 0
	}
	excess := mean(returns) - cfg.RiskFreeRate/cfg.PeriodsPerYear
	return excess / sd * math.Sqrt(cfg.PeriodsPerYear)
}

// Sortino is like Sharpe but penalizes only downside deviation, computed as
// the root mean square of the negative returns about the zero target so a
// single losing period still yields a usable denominator. With no negative
// returns in the sample the downside deviation is zero and the result is
// Sentinel rather than +Inf.
func Sortino(returns []float64, cfg Config) float64 {
	var ss float64
	n := 0
	for _, r := range returns {
		if r < 0 {
			ss += r * r
			n++
		}
	}
	if n == 0 {
		return Sentinel
	}
	dd := math.Sqrt(ss / float64(n))
	excess := mean(returns) - cfg.RiskFreeRate/cfg.PeriodsPerYear
	return excess / dd * math.Sqrt(cfg.PeriodsPerYear)
}

// MaxDrawdown is the deepest decline from a running peak, always in [-1, 0].
func MaxDrawdown(curve series.EquityCurve) float64 {
	var peak, maxDD float64
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			dd := p.Value/peak - 1
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// RecoveryPeriods counts periods from the max-drawdown trough until equity
// first re-exceeds the prior peak. If the curve ends still in drawdown the
// result is NotYetRecovered, not a numeric guess.
func RecoveryPeriods(curve series.EquityCurve) int {
	peak := 0.0
	trough, maxDD := 0, 0.0
	troughPeak := 0.0
	for i, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			dd := p.Value/peak - 1
			if dd < maxDD {
				maxDD = dd
				trough = i
				troughPeak = peak
			}
		}
	}
	if maxDD == 0 {
		return 0
	}
	for i := trough + 1; i < len(curve); i++ {
		if curve[i].Value > troughPeak {
			return i - trough
		}
	}
	return NotYetRecovered
}

// Calmar is annualized return over absolute max drawdown; Sentinel when the
// curve never drew down.
func Calmar(curve series.EquityCurve, cfg Config) float64 {
	mdd := MaxDrawdown(curve)
	if mdd == 0 {
		return Sentinel
	}
	return AnnualizedReturn(curve, cfg) / math.Abs(mdd)
}

// WinRate is the fraction of periods with a strictly positive return.
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// ProfitFactor is gross gains over gross losses; Sentinel with zero losing
// periods and positive gains, 0 for an all-flat series.
func ProfitFactor(returns []float64) float64 {
	var gains, losses float64
	for _, r := range returns {
		if r > 0 {
			gains += r
		} else {
			losses -= r
		}
	}
	if losses == 0 {
		if gains > 0 {
			return Sentinel
		}
		return 0
	}
	return gains / losses
}

// UlcerIndex is the root mean square of percentage drawdowns, a depth-and-
// duration-sensitive alternative to max drawdown.
func UlcerIndex(curve series.EquityCurve) float64 {
	if len(curve) == 0 {
		return 0
	}
	var peak, ss float64
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			dd := (p.Value/peak - 1) * 100
			ss += dd * dd
		}
	}
	return math.Sqrt(ss / float64(len(curve)))
}

// RecoveryFactor is total return over absolute max drawdown; 0 when the
// curve never drew down.
func RecoveryFactor(curve series.EquityCurve) float64 {
	mdd := math.Abs(MaxDrawdown(curve))
	if mdd == 0 {
		return 0
	}
	return TotalReturn(curve) / mdd
}

// Skewness is the sample skewness of period returns.
func Skewness(returns []float64) float64 {
	n := float64(len(returns))
	sd := stddev(returns)
	if n < 3 || sd == 0 {
		return 0
	}
	m := mean(returns)
	var s float64
	for _, r := range returns {
		d := (r - m) / sd
		s += d * d * d
	}
	return n / ((n - 1) * (n - 2)) * s
}

// Kurtosis is the sample excess kurtosis of period returns.
func Kurtosis(returns []float64) float64 {
	n := float64(len(returns))
	sd := stddev(returns)
	if n < 4 || sd == 0 {
		return 0
	}
	m := mean(returns)
	var s float64
	for _, r := range returns {
		d := (r - m) / sd
		s += d * d * d * d
	}
	adj := n * (n + 1) / ((n - 1) * (n - 2) * (n - 3))
	return adj*s - 3*(n-1)*(n-1)/((n-2)*(n-3))
}

// TailRatio compares the 95th-percentile gain against the 5th-percentile
// loss; 0 when the left tail is empty.
func TailRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	right := percentile(returns, 0.95)
	left := math.Abs(percentile(returns, 0.05))
	if left == 0 {
		return 0
	}
	return right / left
}

// InformationRatio is annualized active return over tracking error against a
// benchmark aligned by timestamp intersection; 0 with zero tracking error.
func InformationRatio(returns, benchmark series.ReturnSeries, cfg Config) float64 {
	av, bv, _ := series.Intersect(returns, benchmark)
	if len(av) == 0 {
		return 0
	}
	excess := make([]float64, len(av))
	for i := range av {
		excess[i] = av[i] - bv[i]
	}
	te := stddev(excess) * math.Sqrt(cfg.PeriodsPerYear)
	if te == 0 {
		return 0
	}
	return mean(excess) * cfg.PeriodsPerYear / te
}

// RollingSharpe computes the annualized Sharpe over a sliding window,
// stamped at each window's closing timestamp. Windows with zero variance
// report 0 like the full-sample Sharpe.
func RollingSharpe(returns series.ReturnSeries, window int, cfg Config) series.ReturnSeries {
	if window < 2 || len(returns) < window {
		return nil
	}
	vals := returns.Values()
	out := make(series.ReturnSeries, 0, len(returns)-window+1)
	for i := window; i <= len(vals); i++ {
		w := vals[i-window : i]
		out = append(out, series.Point{
			Timestamp: returns[i-1].Timestamp,
			Value:     Sharpe(w, cfg),
		})
	}
	return out
}

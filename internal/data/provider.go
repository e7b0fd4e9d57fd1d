// Package data is the market-data access collaborator. It fetches daily
// OHLCV history per ticker from an upstream CSV endpoint, behind a TTL cache,
// a token-bucket rate limiter, and a circuit breaker. The analytics core
// never sees any of this plumbing; it receives finished, validated
// series.PriceSeries values.
package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantdesk/quantdesk/internal/series"
)

// Provider returns daily bar history for one instrument over a named period
// (1mo|3mo|6mo|1y|2y) or the full available range with period "max". Bars
// are deduplicated and chronologically sorted before return.
type Provider interface {
	Daily(ctx context.Context, ticker, period string) (series.PriceSeries, error)
}

// periodLookback maps the named periods to calendar lookbacks.
var periodLookback = map[string]time.Duration{
	"1mo": 31 * 24 * time.Hour,
	"3mo": 92 * 24 * time.Hour,
	"6mo": 183 * 24 * time.Hour,
	"1y":  366 * 24 * time.Hour,
	"2y":  731 * 24 * time.Hour,
}

// Periods lists the accepted named periods.
func Periods() []string { return []string{"1mo", "3mo", "6mo", "1y", "2y", "max"} }

// cutoff resolves a named period to the earliest admissible bar time.
func cutoff(now time.Time, period string) (time.Time, error) {
	if period == "" || period == "max" {
		return time.Time{}, nil
	}
	d, ok := periodLookback[strings.ToLower(period)]
	if !ok {
		return time.Time{}, &series.ConfigError{
			Op:     "data.Daily",
			Detail: fmt.Sprintf("unknown period %q (known: %v)", period, Periods()),
		}
	}
	return now.Add(-d), nil
}

// trim drops bars before the cutoff.
func trim(ps series.PriceSeries, from time.Time) series.PriceSeries {
	if from.IsZero() {
		return ps
	}
	i := 0
	for i < len(ps.Bars) && ps.Bars[i].Timestamp.Before(from) {
		i++
	}
	return series.PriceSeries{Ticker: ps.Ticker, Bars: ps.Bars[i:]}
}

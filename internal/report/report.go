package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantdesk/quantdesk/internal/data"
	"github.com/quantdesk/quantdesk/internal/series"
)

const volatilityWindow = 30

// Generator produces daily text reports over a set of tickers.
type Generator struct {
	provider data.Provider
	period   string
}

// NewGenerator creates a report generator fetching bars from provider
// over the given lookback period.
func NewGenerator(provider data.Provider, period string) *Generator {
	return &Generator{provider: provider, period: period}
}

// AssetLine holds the per-ticker figures printed in the daily report.
type AssetLine struct {
	Ticker         string
	Date           time.Time
	Open           float64
	High           float64
	Low            float64
	Close          float64
	Volume         float64
	DailyChangePct float64
	Volatility30d  float64
	MaxDrawdownPct float64
	Err            error
}

// Collect fetches and summarizes each ticker. Fetch failures are recorded
// on the line rather than aborting the report.
func (g *Generator) Collect(ctx context.Context, tickers []string) []AssetLine {
	lines := make([]AssetLine, 0, len(tickers))
	for _, ticker := range tickers {
		prices, err := g.provider.Daily(ctx, ticker, g.period)
		if err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Msg("report fetch failed")
			lines = append(lines, AssetLine{Ticker: ticker, Err: err})
			continue
		}
		lines = append(lines, summarize(ticker, prices))
	}
	return lines
}

func summarize(ticker string, prices series.PriceSeries) AssetLine {
	n := prices.Len()
	if n == 0 {
		return AssetLine{Ticker: ticker, Err: fmt.Errorf("no data available")}
	}

	today := prices.Bars[n-1]
	line := AssetLine{
		Ticker: ticker,
		Date:   today.Timestamp,
		Open:   today.Open,
		High:   today.High,
		Low:    today.Low,
		Close:  today.Close,
		Volume: today.Volume,
	}

	if n > 1 {
		prev := prices.Bars[n-2].Close
		if prev != 0 {
			line.DailyChangePct = (today.Close - prev) / prev * 100
		}
	}

	returns := prices.Returns()
	vals := returns.Values()
	if len(vals) >= volatilityWindow {
		tail := vals[len(vals)-volatilityWindow:]
		line.Volatility30d = stddev(tail) * math.Sqrt(252) * 100
	}
	line.MaxDrawdownPct = closeDrawdown(prices.Closes()) * 100
	return line
}

// Write renders the full report to w.
func Write(w io.Writer, lines []AssetLine, now time.Time) error {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	b.WriteString(rule + "\n")
	b.WriteString("DAILY PORTFOLIO REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString(rule + "\n\n")

	for _, line := range lines {
		if line.Err != nil {
			fmt.Fprintf(&b, "[%s] ERROR: %v\n\n", line.Ticker, line.Err)
			continue
		}
		fmt.Fprintf(&b, "[%s] - %s\n", line.Ticker, line.Date.Format("2006-01-02"))
		b.WriteString(strings.Repeat("-", 40) + "\n")
		fmt.Fprintf(&b, "  Open:           %12.2f\n", line.Open)
		fmt.Fprintf(&b, "  Close:          %12.2f\n", line.Close)
		fmt.Fprintf(&b, "  High:           %12.2f\n", line.High)
		fmt.Fprintf(&b, "  Low:            %12.2f\n", line.Low)
		fmt.Fprintf(&b, "  Volume:         %12.0f\n", line.Volume)
		fmt.Fprintf(&b, "  Daily Change:   %11.2f%%\n", line.DailyChangePct)
		fmt.Fprintf(&b, "  Volatility(30d):%11.2f%%\n", line.Volatility30d)
		fmt.Fprintf(&b, "  Max Drawdown:   %11.2f%%\n", line.MaxDrawdownPct)
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n")
	b.WriteString("END OF REPORT\n")
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Save writes the report to a timestamped file under dir and returns its path.
func Save(dir string, lines []AssetLine, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("report_%s.txt", now.Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()
	if err := Write(f, lines, now); err != nil {
		return "", err
	}
	return path, nil
}

// closeDrawdown is the worst peak-to-trough decline over raw closes,
// independent of any strategy equity curve.
func closeDrawdown(closes []float64) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			dd := (c - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

package data

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/quantdesk/quantdesk/internal/series"
	"github.com/quantdesk/quantdesk/internal/telemetry"
)

// ClientConfig configures the HTTP provider.
type ClientConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	RPS      float64
	Burst    int
}

// DefaultClientConfig targets the Stooq daily CSV endpoint with conservative
// limits.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:  "https://stooq.com/q/d/l/",
		Timeout:  10 * time.Second,
		CacheTTL: 15 * time.Minute,
		RPS:      2,
		Burst:    4,
	}
}

// Client fetches daily bars over HTTP. Responses are cached by ticker and
// period; upstream calls pass through a token-bucket limiter and a circuit
// breaker so a misbehaving endpoint cannot be hammered.
type Client struct {
	cfg     ClientConfig
	httpc   *http.Client
	cache   Cache
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewClient builds a Client with the given cache. A nil cache gets an
// in-process one.
func NewClient(cfg ClientConfig, cache Cache) *Client {
	if cache == nil {
		cache = NewMemoryCache()
	}
	settings := gobreaker.Settings{
		Name:     "marketdata",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
	}
	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Daily implements Provider.
func (c *Client) Daily(ctx context.Context, ticker, period string) (series.PriceSeries, error) {
	from, err := cutoff(time.Now(), period)
	if err != nil {
		return series.PriceSeries{}, err
	}

	key := fmt.Sprintf("bars:%s:%s", strings.ToLower(ticker), period)
	raw, err := cachedGet(c.cache, key, c.cfg.CacheTTL, func() ([]byte, error) {
		ps, err := c.fetch(ctx, ticker)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ps)
	})
	if err != nil {
		return series.PriceSeries{}, err
	}

	var ps series.PriceSeries
	if err := json.Unmarshal(raw, &ps); err != nil {
		return series.PriceSeries{}, fmt.Errorf("decode cached bars for %s: %w", ticker, err)
	}
	return trim(ps, from), nil
}

func (c *Client) fetch(ctx context.Context, ticker string) (series.PriceSeries, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return series.PriceSeries{}, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.doFetch(ctx, ticker)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			telemetry.ProviderRequest("rejected")
		} else {
			telemetry.ProviderRequest("error")
		}
		return series.PriceSeries{}, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	telemetry.ProviderRequest("ok")
	return result.(series.PriceSeries), nil
}

func (c *Client) doFetch(ctx context.Context, ticker string) (series.PriceSeries, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return series.PriceSeries{}, err
	}
	q := u.Query()
	q.Set("s", strings.ToLower(ticker))
	q.Set("i", "d") // daily interval
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return series.PriceSeries{}, err
	}
	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return series.PriceSeries{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return series.PriceSeries{}, fmt.Errorf("upstream status %d for %s", resp.StatusCode, ticker)
	}

	ps, err := parseDailyCSV(ticker, resp.Body)
	if err != nil {
		return series.PriceSeries{}, err
	}
	log.Debug().
		Str("ticker", ticker).
		Int("bars", ps.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("fetched daily bars")
	return ps, nil
}

// parseDailyCSV reads Date,Open,High,Low,Close,Volume rows. Unparseable rows
// are skipped; duplicates are dropped and the result is sorted so the series
// invariant holds regardless of upstream ordering.
func parseDailyCSV(ticker string, r io.Reader) (series.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var bars []series.Bar
	seen := make(map[time.Time]bool)
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return series.PriceSeries{}, fmt.Errorf("read csv for %s: %w", ticker, err)
		}
		if first {
			first = false
			if len(rec) > 0 && strings.EqualFold(rec[0], "date") {
				continue
			}
		}
		if len(rec) < 6 {
			continue
		}
		ts, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			continue
		}
		if seen[ts] {
			continue
		}
		o, err1 := strconv.ParseFloat(rec[1], 64)
		h, err2 := strconv.ParseFloat(rec[2], 64)
		l, err3 := strconv.ParseFloat(rec[3], 64)
		cl, err4 := strconv.ParseFloat(rec[4], 64)
		v, err5 := strconv.ParseFloat(rec[5], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		seen[ts] = true
		bars = append(bars, series.Bar{Timestamp: ts, Open: o, High: h, Low: l, Close: cl, Volume: v})
	}
	if len(bars) == 0 {
		return series.PriceSeries{}, fmt.Errorf("no bars returned for %s", ticker)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return series.PriceSeries{Ticker: strings.ToUpper(ticker), Bars: bars}, nil
}

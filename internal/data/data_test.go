package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/quantdesk/internal/series"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2024-01-02,100.0,102.0,99.0,101.5,120000
2024-01-03,101.5,103.0,100.5,102.0,98000
2024-01-04,102.0,104.5,101.0,104.0,150000
`

func TestParseDailyCSV(t *testing.T) {
	ps, err := parseDailyCSV("spy.us", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, "SPY.US", ps.Ticker)
	require.Len(t, ps.Bars, 3)
	assert.Equal(t, 101.5, ps.Bars[0].Close)
	assert.Equal(t, 104.5, ps.Bars[2].High)
	assert.Equal(t, 120000.0, ps.Bars[0].Volume)
	assert.NoError(t, ps.Validate())
}

func TestParseDailyCSV_SkipsBadRowsAndDuplicates(t *testing.T) {
	raw := `Date,Open,High,Low,Close,Volume
2024-01-03,101.5,103.0,100.5,102.0,98000
2024-01-02,100.0,102.0,99.0,101.5,120000
2024-01-02,999.0,999.0,999.0,999.0,1
not-a-date,1,2,3,4,5
2024-01-04,102.0,notanumber,101.0,104.0,150000
2024-01-05,104.0,105.0,103.0,104.5,90000
`
	ps, err := parseDailyCSV("test", strings.NewReader(raw))
	require.NoError(t, err)

	// out-of-order input comes back sorted, the duplicate 01-02 keeps the
	// first occurrence, and the malformed rows vanish
	require.Len(t, ps.Bars, 3)
	assert.NoError(t, ps.Validate())
	assert.Equal(t, 101.5, ps.Bars[0].Close)
	assert.Equal(t, 102.0, ps.Bars[1].Close)
	assert.Equal(t, 104.5, ps.Bars[2].Close)
}

func TestParseDailyCSV_Empty(t *testing.T) {
	_, err := parseDailyCSV("x", strings.NewReader("Date,Open,High,Low,Close,Volume\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no bars")
}

func TestCutoff(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	from, err := cutoff(now, "1mo")
	require.NoError(t, err)
	assert.True(t, from.Before(now))
	assert.True(t, from.After(now.AddDate(0, -2, 0)))

	from, err = cutoff(now, "max")
	require.NoError(t, err)
	assert.True(t, from.IsZero())

	_, err = cutoff(now, "7w")
	var cfgErr *series.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestTrim(t *testing.T) {
	bars := []series.Bar{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 1},
		{Timestamp: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Close: 2},
		{Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Close: 3},
	}
	ps := series.PriceSeries{Ticker: "T", Bars: bars}

	got := trim(ps, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.Len(t, got.Bars, 2)
	assert.Equal(t, 2.0, got.Bars[0].Close)

	got = trim(ps, time.Time{})
	assert.Len(t, got.Bars, 3)
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache()

	c.Set("k", []byte("v"), time.Minute)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	c.Set("expired", []byte("v"), -time.Second)
	_, ok = c.Get("expired")
	assert.False(t, ok)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache()
	c.Set("k", []byte("v"), 0)
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestCachedGet_FetchesOnceWithinTTL(t *testing.T) {
	c := NewMemoryCache()
	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	for i := 0; i < 3; i++ {
		got, err := cachedGet(c, "key", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), got)
	}
	assert.Equal(t, 1, calls)
}

func TestClient_Daily_EndToEnd(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "spy.us", r.URL.Query().Get("s"))
		assert.Equal(t, "d", r.URL.Query().Get("i"))
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:  srv.URL,
		Timeout:  5 * time.Second,
		CacheTTL: time.Minute,
		RPS:      100,
		Burst:    10,
	}, NewMemoryCache())

	ps, err := client.Daily(context.Background(), "SPY.US", "max")
	require.NoError(t, err)
	assert.Equal(t, "SPY.US", ps.Ticker)
	assert.Len(t, ps.Bars, 3)

	// second call is served from cache
	_, err = client.Daily(context.Background(), "SPY.US", "max")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestClient_Daily_UnknownPeriod(t *testing.T) {
	client := NewClient(DefaultClientConfig(), NewMemoryCache())
	_, err := client.Daily(context.Background(), "SPY.US", "decade")
	var cfgErr *series.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestClient_Daily_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:  srv.URL,
		Timeout:  5 * time.Second,
		CacheTTL: time.Minute,
		RPS:      100,
		Burst:    10,
	}, NewMemoryCache())

	_, err := client.Daily(context.Background(), "x", "max")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

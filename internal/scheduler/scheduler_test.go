package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/quantdesk/internal/config"
	"github.com/quantdesk/quantdesk/internal/report"
	"github.com/quantdesk/quantdesk/internal/series"
)

type stubProvider struct {
	prices map[string]series.PriceSeries
}

func (s *stubProvider) Daily(ctx context.Context, ticker, period string) (series.PriceSeries, error) {
	if p, ok := s.prices[ticker]; ok {
		return p, nil
	}
	return series.PriceSeries{}, fmt.Errorf("unknown ticker %s", ticker)
}

func testPrices(ticker string) series.PriceSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 101, 99, 102, 104}
	bars := make([]series.Bar, len(closes))
	for i, c := range closes {
		bars[i] = series.Bar{Timestamp: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return series.PriceSeries{Ticker: ticker, Bars: bars}
}

func newTestScheduler(t *testing.T, jobs []config.Job) *Scheduler {
	t.Helper()
	provider := &stubProvider{prices: map[string]series.PriceSeries{
		"SPY.US": testPrices("SPY.US"),
	}}
	cfg := config.ReportConfig{
		Tickers:   []string{"SPY.US"},
		OutputDir: filepath.Join(t.TempDir(), "reports"),
		Period:    "3mo",
		Jobs:      jobs,
	}
	return New(cfg, report.NewGenerator(provider, cfg.Period))
}

func TestRunJob_UnknownName(t *testing.T) {
	s := newTestScheduler(t, nil)

	res := s.RunJob(context.Background(), "nope")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "job not found")
	assert.Equal(t, "nope", res.JobName)
}

func TestRunJob_WritesArtifact(t *testing.T) {
	s := newTestScheduler(t, []config.Job{
		{Name: "daily", IntervalMinutes: 60, Enabled: true},
	})

	res := s.RunJob(context.Background(), "daily")
	require.True(t, res.Success, res.Error)
	require.NotEmpty(t, res.Artifact)

	content, err := os.ReadFile(res.Artifact)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[SPY.US]")
	assert.Contains(t, string(content), "END OF REPORT")
}

func TestRunJob_JobTickersOverrideDefaults(t *testing.T) {
	s := newTestScheduler(t, []config.Job{
		{Name: "alt", IntervalMinutes: 60, Enabled: true, Tickers: []string{"MISSING.US"}},
	})

	res := s.RunJob(context.Background(), "alt")
	require.True(t, res.Success, res.Error)

	content, err := os.ReadFile(res.Artifact)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[MISSING.US] ERROR")
	assert.NotContains(t, string(content), "[SPY.US]")
}

func TestGetStatus_CountsJobs(t *testing.T) {
	s := newTestScheduler(t, []config.Job{
		{Name: "a", IntervalMinutes: 60, Enabled: true},
		{Name: "b", IntervalMinutes: 60, Enabled: false},
		{Name: "c", IntervalMinutes: 60, Enabled: true},
	})

	status := s.GetStatus()
	assert.False(t, status.Running)
	assert.Equal(t, 2, status.EnabledJobs)
	assert.Equal(t, 1, status.DisabledJobs)
	assert.Zero(t, status.Uptime)
}

func TestListJobs(t *testing.T) {
	jobs := []config.Job{{Name: "a", IntervalMinutes: 60}}
	s := newTestScheduler(t, jobs)
	assert.Equal(t, jobs, s.ListJobs())
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	s := newTestScheduler(t, []config.Job{
		{Name: "daily", IntervalMinutes: 60, Enabled: true},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	// Wait for the scheduler to flip to running before cancelling.
	require.Eventually(t, func() bool { return s.GetStatus().Running }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.False(t, s.GetStatus().Running)
}

package telemetry

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := Registry.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestRegistryExposesAllMetrics(t *testing.T) {
	ObserveAnalysis("backtest", 50*time.Millisecond)
	ProviderRequest("ok")
	CacheHit()
	CacheMiss()

	fams := gather(t)
	assert.Contains(t, fams, "quantdesk_analysis_duration_seconds")
	assert.Contains(t, fams, "quantdesk_active_analyses")
	assert.Contains(t, fams, "quantdesk_provider_requests_total")
	assert.Contains(t, fams, "quantdesk_cache_hits_total")
	assert.Contains(t, fams, "quantdesk_cache_misses_total")
}

func TestAnalysisGaugePairsStartAndDone(t *testing.T) {
	AnalysisStarted()
	AnalysisStarted()
	AnalysisDone()

	fams := gather(t)
	g := fams["quantdesk_active_analyses"]
	require.NotNil(t, g)
	require.Len(t, g.GetMetric(), 1)
	assert.Equal(t, 1.0, g.GetMetric()[0].GetGauge().GetValue())

	AnalysisDone()
	fams = gather(t)
	assert.Equal(t, 0.0, fams["quantdesk_active_analyses"].GetMetric()[0].GetGauge().GetValue())
}

func TestProviderRequestsLabeledByOutcome(t *testing.T) {
	ProviderRequest("error")
	ProviderRequest("error")

	fams := gather(t)
	fam := fams["quantdesk_provider_requests_total"]
	require.NotNil(t, fam)

	var errCount float64
	for _, m := range fam.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "result" && l.GetValue() == "error" {
				errCount = m.GetCounter().GetValue()
			}
		}
	}
	assert.GreaterOrEqual(t, errCount, 2.0)
}

func TestObserveAnalysisRecordsDuration(t *testing.T) {
	ObserveAnalysis("portfolio", 10*time.Millisecond)

	fams := gather(t)
	fam := fams["quantdesk_analysis_duration_seconds"]
	require.NotNil(t, fam)

	found := false
	for _, m := range fam.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "kind" && l.GetValue() == "portfolio" {
				found = true
				assert.GreaterOrEqual(t, m.GetHistogram().GetSampleCount(), uint64(1))
			}
		}
	}
	assert.True(t, found)
}

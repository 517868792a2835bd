package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscart/job-sizer/pkg/logging"
	"github.com/opscart/job-sizer/pkg/models"
)

// fakeAPI answers instant queries from a canned vector and records them.
type fakeAPI struct {
	v1.API
	result   model.Value
	err      error
	queries  []string
	times    []time.Time
	warnings v1.Warnings
}

func (f *fakeAPI) Query(ctx context.Context, query string, ts time.Time, opts ...v1.Option) (model.Value, v1.Warnings, error) {
	f.queries = append(f.queries, query)
	f.times = append(f.times, ts)
	return f.result, f.warnings, f.err
}

func vector(values ...float64) model.Vector {
	v := make(model.Vector, len(values))
	for i, value := range values {
		v[i] = &model.Sample{Value: model.SampleValue(value)}
	}
	return v
}

func TestPeakUsageMemory(t *testing.T) {
	api := &fakeAPI{result: vector(512 * bytesPerMB), warnings: v1.Warnings{"partial data"}}
	source := newPrometheusSource(api, "http://prom", logging.Discard())
	end := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	peak, err := source.PeakUsage(context.Background(), "batch", "render-x7k2p", models.ResourceMemory, end, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 512.0, peak)

	require.Len(t, api.queries, 1)
	assert.Equal(t,
		`max_over_time(sum(container_memory_working_set_bytes{namespace="batch",pod="render-x7k2p",container!=""})[2h:1m])`,
		api.queries[0])
	assert.Equal(t, end, api.times[0])
}

func TestPeakUsageCores(t *testing.T) {
	api := &fakeAPI{result: vector(1.5, 2.25)}
	source := newPrometheusSource(api, "http://prom", logging.Discard())

	// Short windows are widened to one step.
	peak, err := source.PeakUsage(context.Background(), "batch", "etl-1", models.ResourceCores, time.Now(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2.25, peak)
	assert.Contains(t, api.queries[0], "container_cpu_usage_seconds_total")
	assert.Contains(t, api.queries[0], "[1m:1m]")
}

func TestPeakUsageErrors(t *testing.T) {
	tests := []struct {
		name     string
		api      *fakeAPI
		resource models.Resource
	}{
		{"query failure", &fakeAPI{err: errors.New("connection refused")}, models.ResourceDisk},
		{"empty vector", &fakeAPI{result: model.Vector{}}, models.ResourceDisk},
		{"not a vector", &fakeAPI{result: &model.Scalar{Value: 1}}, models.ResourceMemory},
		{"unknown resource", &fakeAPI{result: vector(1)}, models.Resource("gpus")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newPrometheusSource(tt.api, "http://prom", logging.Discard())
			_, err := source.PeakUsage(context.Background(), "batch", "pod", tt.resource, time.Now(), time.Hour)
			assert.Error(t, err)
		})
	}
}

func TestPrometheusSourceAvailability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[]}}`))
	}))
	defer server.Close()

	source, err := NewPrometheusSource(server.URL, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "Prometheus", source.Name())
	assert.Equal(t, server.URL, source.URL())
	assert.True(t, source.IsAvailable(context.Background()))

	down := newPrometheusSource(&fakeAPI{err: errors.New("down")}, "http://prom", logging.Discard())
	assert.False(t, down.IsAvailable(context.Background()))
}

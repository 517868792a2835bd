package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/sirupsen/logrus"

	"github.com/opscart/job-sizer/pkg/models"
)

const bytesPerMB = 1024 * 1024

// peakQueries maps each resource to a PromQL template taking namespace, pod,
// window and step. Every template sums over the pod's containers before
// taking the maximum.
var peakQueries = map[models.Resource]string{
	models.ResourceCores:  `max_over_time(sum(rate(container_cpu_usage_seconds_total{namespace="%s",pod="%s",container!=""}[5m]))[%s:%s])`,
	models.ResourceMemory: `max_over_time(sum(container_memory_working_set_bytes{namespace="%s",pod="%s",container!=""})[%s:%s])`,
	models.ResourceDisk:   `max_over_time(sum(container_fs_usage_bytes{namespace="%s",pod="%s",container!=""})[%s:%s])`,
}

// PrometheusSource answers peak usage queries for finished pods
type PrometheusSource struct {
	client v1.API
	url    string
	step   time.Duration
	log    logrus.FieldLogger
}

func NewPrometheusSource(url string, log logrus.FieldLogger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return newPrometheusSource(v1.NewAPI(client), url, log), nil
}

func newPrometheusSource(client v1.API, url string, log logrus.FieldLogger) *PrometheusSource {
	return &PrometheusSource{
		client: client,
		url:    url,
		step:   time.Minute,
		log:    log,
	}
}

// PeakUsage returns the largest usage of resource by pod in the window
// ending at end. Cores are in cores; memory and disk in MB.
func (p *PrometheusSource) PeakUsage(ctx context.Context, namespace, pod string, resource models.Resource, end time.Time, window time.Duration) (float64, error) {
	template, ok := peakQueries[resource]
	if !ok {
		return 0, fmt.Errorf("no peak query for resource %s", resource)
	}
	if window < p.step {
		window = p.step
	}

	query := fmt.Sprintf(template, namespace, pod,
		model.Duration(window).String(), model.Duration(p.step).String())

	value, err := p.querySingle(ctx, query, end)
	if err != nil {
		return 0, fmt.Errorf("%s peak for %s/%s: %w", resource, namespace, pod, err)
	}

	if resource == models.ResourceMemory || resource == models.ResourceDisk {
		value /= bytesPerMB
	}
	return value, nil
}

func (p *PrometheusSource) querySingle(ctx context.Context, query string, ts time.Time) (float64, error) {
	result, warnings, err := p.client.Query(ctx, query, ts)
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}

	if len(warnings) > 0 {
		p.log.Warnf("Prometheus: %v", warnings)
	}

	vector, ok := result.(model.Vector)
	if !ok || len(vector) == 0 {
		return 0, fmt.Errorf("no data for query: %s", query)
	}

	peak := 0.0
	for _, sample := range vector {
		if v := float64(sample.Value); v > peak {
			peak = v
		}
	}
	return peak, nil
}

func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	_, _, err := p.client.Query(ctx, "up", time.Now())
	return err == nil
}

func (p *PrometheusSource) Name() string {
	return "Prometheus"
}

// URL returns the address of the Prometheus server.
func (p *PrometheusSource) URL() string {
	return p.url
}

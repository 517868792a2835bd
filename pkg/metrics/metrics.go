// Package metrics publishes allocation recommendations as Prometheus gauges.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opscart/job-sizer/pkg/models"
)

// Exporter holds the job-sizer gauges on a private registry.
type Exporter struct {
	registry *prometheus.Registry

	firstAllocation    *prometheus.GaugeVec
	wastePercentage    *prometheus.GaugeVec
	relativeThroughput *prometheus.GaugeVec
	retries            *prometheus.GaugeVec
	observations       *prometheus.GaugeVec
}

func NewExporter() *Exporter {
	modeLabels := []string{"category", "resource", "mode"}

	e := &Exporter{
		registry: prometheus.NewRegistry(),
		firstAllocation: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "job_sizer_first_allocation",
				Help: "Recommended first allocation, in the resource's unit.",
			},
			modeLabels,
		),
		wastePercentage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "job_sizer_waste_percentage",
				Help: "Share of allocated resource-time wasted under the recommendation.",
			},
			modeLabels,
		),
		relativeThroughput: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "job_sizer_relative_throughput",
				Help: "Throughput under the recommendation relative to allocating the maximum seen.",
			},
			modeLabels,
		),
		retries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "job_sizer_retries",
				Help: "Recorded jobs that would need a second attempt under the recommendation.",
			},
			modeLabels,
		),
		observations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "job_sizer_observations",
				Help: "Finished jobs the recommendation is based on.",
			},
			[]string{"category", "resource"},
		),
	}

	e.registry.MustRegister(
		e.firstAllocation,
		e.wastePercentage,
		e.relativeThroughput,
		e.retries,
		e.observations,
	)
	return e
}

// Record sets the gauges from results. Results that failed are skipped, and
// their stale series removed.
func (e *Exporter) Record(results []*models.AllocationResult) int {
	recorded := 0
	for _, r := range results {
		labels := prometheus.Labels{
			"category": r.Category,
			"resource": string(r.Resource),
			"mode":     r.Mode.String(),
		}
		if !r.OK() {
			e.firstAllocation.Delete(labels)
			e.wastePercentage.Delete(labels)
			e.relativeThroughput.Delete(labels)
			e.retries.Delete(labels)
			continue
		}

		e.firstAllocation.With(labels).Set(r.Allocation)
		e.wastePercentage.With(labels).Set(r.WastePercentage)
		e.relativeThroughput.With(labels).Set(r.RelativeThroughput)
		e.retries.With(labels).Set(float64(r.Retries))
		e.observations.WithLabelValues(r.Category, string(r.Resource)).Set(float64(r.Count))
		recorded++
	}
	return recorded
}

// Handler serves the gauges in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the gauges to path for the node-exporter textfile
// collector. The file is replaced atomically.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

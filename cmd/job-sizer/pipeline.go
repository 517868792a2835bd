package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opscart/job-sizer/pkg/analyzer"
	"github.com/opscart/job-sizer/pkg/converter"
	"github.com/opscart/job-sizer/pkg/datasource"
	"github.com/opscart/job-sizer/pkg/metrics"
	"github.com/opscart/job-sizer/pkg/models"
	"github.com/opscart/job-sizer/pkg/pricing"
	"github.com/opscart/job-sizer/pkg/recommender"
	"github.com/opscart/job-sizer/pkg/reporter"
	"github.com/opscart/job-sizer/pkg/storage"
)

// target selects the workload a kubectl command is printed for.
type target struct {
	workload  string // e.g. cronjob/nightly
	namespace string
	category  string
}

func (a *app) pricingProvider() (pricing.Provider, error) {
	return pricing.NewProvider(&pricing.Config{
		Provider:  a.cfg.PricingProvider,
		PriceFile: a.cfg.PriceFile,
		CacheTTL:  a.cfg.PriceCacheTTL,
		UnitCosts: a.cfg.UnitCosts,
		Currency:  a.cfg.Currency,
	}, a.log)
}

// openStore opens the configured store. Without storage enabled it returns
// nil, unless required.
func (a *app) openStore(required bool) (storage.Store, error) {
	if !a.cfg.StorageEnabled {
		if required {
			return nil, fmt.Errorf("storage is disabled: set STORAGE_ENABLED=true and DATABASE_URL")
		}
		a.log.Warn("--save ignored: storage is disabled")
		return nil, nil
	}

	store, err := storage.New(storage.Config{Type: a.cfg.StorageType, URL: a.cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// observe reads every observation of src.
func (a *app) observe(ctx context.Context, src datasource.DataSource) ([]models.Observation, error) {
	observations, err := src.Observations(ctx)
	if err != nil {
		return nil, err
	}
	a.log.WithField("source", src.Name()).Debugf("Read %d observation(s)", len(observations))
	return observations, nil
}

// categorize feeds observations into per-category estimators. Rejected
// observations are logged and skipped.
func (a *app) categorize(observations []models.Observation) (*analyzer.Categories, error) {
	categories, err := analyzer.NewCategories(a.cfg.Resources, analyzer.Resolutions{
		Values: a.cfg.Resolutions,
		Time:   a.cfg.TimeResolution,
	})
	if err != nil {
		return nil, err
	}

	rejected, err := categories.AddAll(observations)
	if rejected > 0 {
		a.log.WithError(err).Warnf("Skipped %d invalid observation(s)", rejected)
	}
	if categories.Count() == 0 {
		return nil, fmt.Errorf("no valid observations")
	}

	a.log.Infof("Loaded %d observation(s) in %d categor(ies)",
		categories.Count(), len(categories.Names())-1)
	return categories, nil
}

// run computes recommendations for observations and publishes them: report
// to stdout, optional report file, metrics textfile, database and kubectl
// command.
func (a *app) run(ctx context.Context, source string, observations []models.Observation, tgt *target) error {
	categories, err := a.categorize(observations)
	if err != nil {
		return err
	}

	provider, err := a.pricingProvider()
	if err != nil {
		return err
	}

	rec := recommender.NewWithPricing(provider, a.log)
	results := rec.AnalyzeCategories(categories, a.cfg.Modes)

	report := reporter.New(source, results)
	report.Currency = provider.CostInfo().Currency
	for _, name := range categories.Names() {
		for _, r := range categories.Resources() {
			est, ok := categories.Get(name, r)
			if !ok {
				continue
			}
			profile, err := analyzer.Profile(est)
			if err != nil {
				continue
			}
			report.AddProfile(name, r, profile)
		}
	}

	if a.saveResults {
		if err := a.save(ctx, observations, results); err != nil {
			return err
		}
	}

	return a.publish(ctx, report, tgt)
}

func (a *app) save(ctx context.Context, observations []models.Observation, results []*models.AllocationResult) error {
	store, err := a.openStore(false)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	if !a.observationsStored {
		if err := store.SaveObservations(ctx, observations); err != nil {
			return fmt.Errorf("failed to save observations: %w", err)
		}
	}

	saved := 0
	for _, r := range results {
		if err := store.SaveResult(ctx, r); err != nil {
			a.log.WithError(err).Warnf("Failed to save result for %s/%s", r.Category, r.Resource)
			continue
		}
		saved++
	}
	a.log.Infof("Saved %d result(s)", saved)
	return nil
}

// publish writes report in every requested place. With --metrics-addr it
// then serves the gauges until ctx is done.
func (a *app) publish(ctx context.Context, report *reporter.Report, tgt *target) error {
	if err := reporter.Write(a.out, report, a.format); err != nil {
		return err
	}

	if a.reportOutput != "" {
		if err := a.writeReportFile(report); err != nil {
			return err
		}
	}

	exporter := metrics.NewExporter()
	n := exporter.Record(report.Results)
	if a.cfg.MetricsFile != "" {
		if err := exporter.WriteTextfile(a.cfg.MetricsFile); err != nil {
			return err
		}
		a.log.Infof("Wrote %d recommendation(s) to %s", n, a.cfg.MetricsFile)
	}

	if tgt != nil && tgt.workload != "" {
		mode := a.cfg.Modes[0]
		requests, err := converter.Requests(report.Results, tgt.category, mode)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, converter.Command(tgt.workload, tgt.namespace, requests))
	}

	if a.metricsAddr != "" {
		listener, err := net.Listen("tcp", a.metricsAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", a.metricsAddr, err)
		}
		return a.serveMetrics(ctx, listener, exporter)
	}
	return nil
}

// serveMetrics serves the exporter at /metrics on listener until ctx is
// done.
func (a *app) serveMetrics(ctx context.Context, listener net.Listener, exporter *metrics.Exporter) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	a.log.Infof("Serving metrics on http://%s/metrics", listener.Addr())

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	return nil
}

func (a *app) writeReportFile(report *reporter.Report) error {
	format, err := reporter.ParseFormat(a.reportFormat)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(a.reportOutput); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	file, err := os.Create(a.reportOutput)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := reporter.Write(file, report, format); err != nil {
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}

	a.log.Infof("%s report generated: %s", strings.ToUpper(string(format)), a.reportOutput)
	return file.Close()
}

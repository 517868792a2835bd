package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opscart/job-sizer/pkg/datasource"
	"github.com/opscart/job-sizer/pkg/scanner"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		kubeconfig    string
		allNamespaces bool
		tgt           target
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Recommend allocations from completed Kubernetes Jobs",
		Long: `Scan completed Jobs in a namespace, take each Job's peak usage from
Prometheus and its wall time from the Job status, and recommend a first
allocation per category. A Job's category is its job-sizer.io/category
label, else the CronJob that created it, else its own name.`,
		Example: `  job-sizer scan -n batch
  job-sizer scan -A --mode throughput --metrics-file /var/lib/node_exporter/job_sizer.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if tgt.namespace == "" {
				tgt.namespace = a.cfg.Namespace
			}

			prom, err := datasource.NewPrometheusSource(a.cfg.PrometheusURL, a.log)
			if err != nil {
				return err
			}
			if !prom.IsAvailable(ctx) {
				return fmt.Errorf("prometheus not reachable at %s", prom.URL())
			}
			a.log.Infof("Using Prometheus at %s", prom.URL())

			clientset, err := scanner.NewClientset(kubeconfig)
			if err != nil {
				return err
			}

			scan := scanner.New(clientset, prom, scanner.Options{
				Namespace:     tgt.namespace,
				AllNamespaces: allNamespaces,
				CategoryLabel: a.cfg.CategoryLabel,
				Resources:     a.cfg.Resources,
				Lookback:      a.cfg.MetricsDuration,
			}, a.log)

			observations, err := a.observe(ctx, scan)
			if err != nil {
				return fmt.Errorf("error scanning cluster: %w", err)
			}

			source := "namespace " + tgt.namespace
			if allNamespaces {
				source = "all namespaces"
			}
			return a.run(ctx, source, observations, &tgt)
		},
	}

	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "Path to kubeconfig (default ~/.kube/config)")
	cmd.Flags().StringVarP(&tgt.namespace, "namespace", "n", "", "Namespace to scan (default from config)")
	cmd.Flags().BoolVarP(&allNamespaces, "all-namespaces", "A", false, "Scan all namespaces")
	addTargetFlags(cmd, &tgt)
	return cmd
}

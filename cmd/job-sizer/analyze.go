package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opscart/job-sizer/pkg/datasource"
	"github.com/opscart/job-sizer/pkg/models"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		fromStore bool
		tgt       target
	)

	cmd := &cobra.Command{
		Use:   "analyze [pattern]",
		Short: "Recommend allocations from recorded jobs",
		Long: `Read finished jobs from CSV or XLSX files (optionally gzip, bzip2 or xz
compressed) and recommend a first allocation per category and resource.

The pattern may use ** to match files in subdirectories. Each file needs a
wall_time column and one column per tracked resource (cores, memory, disk);
category, namespace and job are optional.`,
		Example: `  job-sizer analyze jobs.csv
  job-sizer analyze 'runs/**/*.csv.gz' -o json --mode waste
  job-sizer analyze --from-store --target cronjob/nightly -n batch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				observations []models.Observation
				source       string
				err          error
			)
			switch {
			case fromStore:
				store, err := a.openStore(true)
				if err != nil {
					return err
				}
				defer store.Close()
				observations, err = store.LoadObservations(ctx, models.AllCategory)
				if err != nil {
					return fmt.Errorf("failed to load observations: %w", err)
				}
				source = "database"
				a.observationsStored = true
			case len(args) == 1:
				files := datasource.NewFileSource(args[0], a.cfg.Resources, a.log)
				observations, err = a.observe(ctx, files)
				if err != nil {
					return err
				}
				source = args[0]
			default:
				return fmt.Errorf("an input pattern or --from-store is required")
			}

			return a.run(ctx, source, observations, &tgt)
		},
	}

	cmd.Flags().BoolVar(&fromStore, "from-store", false, "Analyze the observations saved in the database")
	cmd.Flags().StringVarP(&tgt.namespace, "namespace", "n", "default", "Namespace of the --target workload")
	addTargetFlags(cmd, &tgt)
	return cmd
}

func addTargetFlags(cmd *cobra.Command, tgt *target) {
	cmd.Flags().StringVar(&tgt.workload, "target", "", "Print a kubectl command applying the first mode's requests to this workload (e.g. cronjob/nightly)")
	cmd.Flags().StringVar(&tgt.category, "target-category", models.AllCategory, "Category whose requests --target applies")
}

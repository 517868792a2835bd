package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/opscart/job-sizer/pkg/analyzer"
	"github.com/opscart/job-sizer/pkg/models"
	"github.com/opscart/job-sizer/pkg/recommender"
	"github.com/opscart/job-sizer/pkg/reporter"
	"github.com/opscart/job-sizer/pkg/simulate"
)

func newSimulateCmd(a *app) *cobra.Command {
	var (
		resource string
		opts     simulate.Options
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Recommend allocations for synthetic beta, exponential and triangular jobs",
		Example: `  job-sizer simulate
  job-sizer simulate --samples 1000 --seed 7 -o csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := models.ParseResource(resource)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if !flags.Changed("seed") {
				opts.Seed = a.cfg.SimulationSeed
			}
			if !flags.Changed("samples") {
				opts.Samples = a.cfg.SimulationSamples
			}
			if !flags.Changed("min") {
				opts.Min = a.cfg.SimulationMin
			}
			if !flags.Changed("max") {
				opts.Max = a.cfg.SimulationMax
			}
			opts.WallTime = a.cfg.SimulationWallTime
			opts.Resource = string(r)
			opts.Resolution = a.cfg.Resolutions[r]

			estimators, err := simulate.Run(opts)
			if err != nil {
				return err
			}

			provider, err := a.pricingProvider()
			if err != nil {
				return err
			}
			rec := recommender.NewWithPricing(provider, a.log)

			var results []*models.AllocationResult
			var profiles []*reporter.ProfileEntry
			for _, est := range estimators {
				category := strings.TrimPrefix(est.Name(), opts.Resource+" ")
				results = append(results, rec.Analyze(est, category, r, a.cfg.Modes)...)
				if profile, err := analyzer.Profile(est); err == nil {
					profiles = append(profiles, &reporter.ProfileEntry{Category: category, Resource: r, Profile: profile})
				}
			}

			report := reporter.New("simulation", results)
			report.Currency = provider.CostInfo().Currency
			report.Profiles = profiles
			return a.publish(cmd.Context(), report, nil)
		},
	}

	defaults := simulate.DefaultOptions()
	opts.TimeResolution = defaults.TimeResolution
	cmd.Flags().StringVar(&resource, "resource", defaults.Resource, "Resource the samples stand for: cores, memory, disk")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", defaults.Seed, "Random seed (default from config)")
	cmd.Flags().IntVar(&opts.Samples, "samples", defaults.Samples, "Jobs per distribution (default from config)")
	cmd.Flags().Float64Var(&opts.Min, "min", defaults.Min, "Smallest sample value (default from config)")
	cmd.Flags().Float64Var(&opts.Max, "max", defaults.Max, "Largest sample value (default from config)")
	return cmd
}

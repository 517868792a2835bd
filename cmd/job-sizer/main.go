package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/config"
	"github.com/opscart/job-sizer/pkg/logging"
	"github.com/opscart/job-sizer/pkg/reporter"
)

// app carries what every subcommand shares once flags are parsed.
type app struct {
	// Flags
	configFile   string
	outputFormat string
	modes        []string
	verbose      bool
	saveResults  bool
	reportFormat string
	reportOutput string
	metricsFile  string
	metricsAddr  string
	preset       string

	// Observations came from the database and must not be saved again.
	observationsStored bool

	cfg    *config.Config
	log    *logrus.Logger
	format reporter.Format
	out    io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "job-sizer",
		Short: "First-allocation sizing for batch jobs",
		Long: `Recommend the first resource allocation of batch jobs from the peak usage
of jobs that already ran, maximizing throughput or minimizing waste.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (YAML, JSON or TOML)")
	flags.StringVarP(&a.outputFormat, "output", "o", "", "Output format: text, json, yaml, csv, markdown, html")
	flags.StringSliceVar(&a.modes, "mode", nil, "Allocation mode: throughput, waste, fixed (repeatable)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&a.saveResults, "save", false, "Save observations and results to the database")
	flags.StringVar(&a.reportFormat, "report-format", "html", "Report file format: html, markdown, csv, json, yaml")
	flags.StringVar(&a.reportOutput, "report-output", "", "Also write the report to this file")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus gauges to this textfile")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus gauges at this address (e.g. :9108) until interrupted")
	flags.StringVar(&a.preset, "preset", "", "Configuration preset: "+strings.Join(config.Presets, ", "))

	rootCmd.AddCommand(
		newAnalyzeCmd(a),
		newScanCmd(a),
		newSimulateCmd(a),
		newHistoryCmd(a),
	)
	return rootCmd
}

// setup loads the configuration and applies the common flags on top of it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var err error
	if a.configFile != "" {
		a.cfg, err = config.Load(a.configFile)
		if err != nil {
			return err
		}
	} else {
		a.cfg, err = config.NewConfig()
		if err != nil {
			return err
		}
	}

	if err := a.cfg.ApplyPreset(a.preset); err != nil {
		return err
	}

	if a.outputFormat != "" {
		a.cfg.OutputFormat = a.outputFormat
	}
	if len(a.modes) > 0 {
		modes := make([]allocation.Mode, 0, len(a.modes))
		for _, s := range a.modes {
			m, err := allocation.ParseMode(s)
			if err != nil {
				return err
			}
			modes = append(modes, m)
		}
		a.cfg.Modes = modes
	}
	if a.metricsFile != "" {
		a.cfg.MetricsFile = a.metricsFile
	}
	a.cfg.Verbose = a.cfg.Verbose || a.verbose

	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.format, err = reporter.ParseFormat(a.cfg.OutputFormat)
	if err != nil {
		return err
	}

	a.out = cmd.OutOrStdout()
	a.log = logging.NewWithOutput(cmd.ErrOrStderr(), a.cfg.Verbose)
	a.log.WithFields(logrus.Fields{
		"modes":         a.cfg.Modes,
		"lookback_days": a.cfg.MetricsLookbackDays,
		"storage":       a.cfg.StorageType,
	}).Debug("configuration loaded")
	return nil
}

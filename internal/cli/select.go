package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/racksim/internal/compute"
	"github.com/roach88/racksim/internal/pipeline"
	"github.com/roach88/racksim/internal/selector"
	"github.com/roach88/racksim/internal/store"
)

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	*RootOptions
	Groups    int
	Seed      int64
	GroupType string
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select and compute unselected samples for random racks",
		Long: `Sample racks at random and, for each, select one stored reading that no
earlier run has selected, compute its metrics and write them back.

With --seed the run is reproducible: the same seed against the same
database state picks the same racks and readings.

Example:
  racksim select
  racksim select --groups 3 --seed 42
  racksim select --group-type rack --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Groups, "groups", 0, "number of racks to sample (default from config, 5)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed for reproducible selection")
	cmd.Flags().StringVar(&opts.GroupType, "group-type", "", "only sample groups of this entity type")

	return cmd
}

func runSelect(opts *SelectOptions, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	k := e.cfg.Select.Groups
	if cmd.Flags().Changed("groups") {
		if opts.Groups < 0 {
			_ = e.formatter.Error(ErrCodeGeneric, "--groups must not be negative", nil)
			return NewExitError(ExitCommandError, "--groups must not be negative")
		}
		k = opts.Groups
	}
	groupType := e.cfg.Select.GroupType
	if cmd.Flags().Changed("group-type") {
		groupType = opts.GroupType
	}
	var seed *int64
	if cmd.Flags().Changed("seed") {
		seed = &opts.Seed
	}

	driverOpts := []pipeline.Option{
		pipeline.WithLogger(e.logger),
		pipeline.WithMetrics(e.metrics),
	}
	if opts.Clock != nil {
		driverOpts = append(driverOpts, pipeline.WithClock(opts.Clock))
	}
	if opts.RunID != "" {
		driverOpts = append(driverOpts, pipeline.WithRunID(opts.RunID))
	}
	driver := pipeline.New(e.store, compute.New(e.cfg.Compute), driverOpts...)

	report, err := driver.Select(cmd.Context(), k, seed, groupType)
	if report != nil {
		e.formatter.RunID = report.RunID
	}
	if err != nil {
		code := ErrCodeRun
		if store.IsUnusable(err) {
			code = ErrCodeStore
		}
		if e.formatter.IsJSON() {
			_ = e.formatter.Failure(code, err.Error(), report)
		} else {
			if report != nil {
				writeSelectReport(e.formatter.Writer, report)
			}
			_ = e.formatter.Error(code, err.Error(), nil)
		}
		return WrapExitError(ExitFailure, "selection run failed", err)
	}

	if len(report.Failures) > 0 {
		msg := fmt.Sprintf("%d group(s) failed", len(report.Failures))
		if e.formatter.IsJSON() {
			_ = e.formatter.Failure(ErrCodeRun, msg, report)
		} else {
			writeSelectReport(e.formatter.Writer, report)
		}
		return NewExitError(ExitFailure, msg)
	}

	if e.formatter.IsJSON() {
		return e.formatter.Success(report)
	}
	writeSelectReport(e.formatter.Writer, report)
	return nil
}

func writeSelectReport(w io.Writer, r *selector.BatchReport) {
	if r.NoGroups {
		fmt.Fprintln(w, "No groups available")
		return
	}

	fmt.Fprintf(w, "Run %s: sampled %d group(s)\n", r.RunID, len(r.Drawn))
	for _, out := range r.Outcomes {
		fmt.Fprintf(w, "  %s: %s (orig=%s) outlet=%s°C cost=$%s/h strategy=%s\n",
			out.GroupID,
			out.DisplayName,
			out.OriginalEntityID,
			formatFloat(out.Metrics.OutletTempC),
			formatFloat(out.Metrics.TotalEnergyCostUSD),
			out.Metrics.CoolingStrategy,
		)
	}
	for _, g := range r.Skipped {
		fmt.Fprintf(w, "  %s: no unselected samples\n", g)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s: FAILED: %s\n", f.GroupID, f.Error)
	}
	fmt.Fprintf(w, "Selected %d, skipped %d, failed %d\n", len(r.Outcomes), len(r.Skipped), len(r.Failures))
}

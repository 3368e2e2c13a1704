package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/racksim/internal/record"
	"github.com/roach88/racksim/internal/store"
)

// LatestOptions holds flags for the latest command.
type LatestOptions struct {
	*RootOptions
	GroupType string
	PerGroup  bool
}

// NewLatestCommand creates the latest command.
func NewLatestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LatestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent reading",
		Long: `Show the most recent stored reading, optionally limited to one entity
type. With --per-group, show the most recent reading of every group of that
type instead (ties on timestamp go to the later insert).

Example:
  racksim latest
  racksim latest --group-type rack --per-group`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatest(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.GroupType, "group-type", "", "entity type to filter on (required with --per-group)")
	cmd.Flags().BoolVar(&opts.PerGroup, "per-group", false, "latest reading of every group")

	return cmd
}

func runLatest(opts *LatestOptions, cmd *cobra.Command) error {
	if opts.PerGroup && opts.GroupType == "" {
		return NewExitError(ExitCommandError, "--per-group requires --group-type")
	}

	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	if opts.PerGroup {
		records, err := e.store.LatestPerGroup(ctx, opts.GroupType)
		if err != nil {
			_ = e.formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitFailure, "latest per group failed", err)
		}
		if e.formatter.IsJSON() {
			return e.formatter.Success(records)
		}
		if len(records) == 0 {
			fmt.Fprintf(e.formatter.Writer, "No %s records\n", opts.GroupType)
			return nil
		}
		for _, rec := range records {
			writeRecordLine(e.formatter.Writer, rec)
		}
		return nil
	}

	rec, err := e.store.LatestRecord(ctx, opts.GroupType)
	if errors.Is(err, store.ErrNotFound) {
		_ = e.formatter.Error(ErrCodeNotFound, "no records", nil)
		return WrapExitError(ExitFailure, "no records", err)
	}
	if err != nil {
		_ = e.formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "latest record failed", err)
	}

	if e.formatter.IsJSON() {
		return e.formatter.Success(rec)
	}
	writeRecordLine(e.formatter.Writer, rec)
	return nil
}

func writeRecordLine(w io.Writer, rec record.Record) {
	fmt.Fprintf(w, "%s %s/%s at %s: workload=%s%% inlet=%s°C outlet=%s°C pue=%s strategy=%s\n",
		record.DisplayName(rec.ID),
		rec.EntityType,
		rec.EntityID,
		formatOptString(rec.Timestamp),
		formatOptFloat(rec.Inputs.ServerWorkloadPercent),
		formatOptFloat(rec.Inputs.InletTempC),
		formatOptFloat(rec.Results.OutletTempC),
		formatOptFloat(rec.Results.PUE),
		formatOptString(rec.Results.CoolingStrategy),
	)
}

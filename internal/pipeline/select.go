package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/racksim/internal/selector"
)

// Select runs one selection run: k groups (optionally of one group type)
// are sampled and each gets one record selected and computed. All
// selections of the run share a run id.
//
// Group failures are part of the report. An error is returned only when the
// groups cannot be listed, the store became unusable mid-run or ctx is
// done; the report then holds what completed before.
func (d *Driver) Select(ctx context.Context, k int, seed *int64, groupType string) (*selector.BatchReport, error) {
	opts := []selector.Option{
		selector.WithClock(d.clock),
		selector.WithLogger(d.logger),
	}
	if d.runID != "" {
		opts = append(opts, selector.WithRunID(d.runID))
	}
	sel := selector.New(d.store, d.engine, opts...)

	start := time.Now()
	report, err := sel.SelectBatch(ctx, k, seed, groupType)
	d.metrics.ObserveSelectRun(time.Since(start))
	d.metrics.RunFinished("select", time.Now())

	if report != nil {
		for _, out := range report.Outcomes {
			d.metrics.Selected()
			d.logger.Info("record selected",
				"group_id", out.GroupID,
				"record_id", out.RecordID,
				"display_name", out.DisplayName,
				"original_entity_id", out.OriginalEntityID,
				"strategy", out.Metrics.CoolingStrategy,
			)
		}
		for _, groupID := range report.Skipped {
			d.metrics.GroupSkipped()
			d.logger.Info("group exhausted", "group_id", groupID)
		}
		for range report.Failures {
			d.metrics.GroupFailed()
		}
	}

	if err != nil {
		return report, fmt.Errorf("selection run %s: %w", sel.RunID(), err)
	}

	if report.NoGroups {
		d.logger.Info("no groups available", "group_type", groupType)
	}
	d.logger.Info("selection complete",
		"run_id", report.RunID,
		"drawn", len(report.Drawn),
		"selected", len(report.Outcomes),
		"skipped", len(report.Skipped),
		"failed", len(report.Failures),
	)
	return report, nil
}

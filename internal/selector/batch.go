package selector

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/racksim/internal/store"
)

// BatchReport summarizes a multi-group selection run.
type BatchReport struct {
	RunID     string `json:"run_id"`
	Seed      *int64 `json:"seed"`
	GroupType string `json:"group_type,omitempty"`
	Requested int    `json:"requested"`

	// NoGroups is set when the store holds no groups at all.
	NoGroups bool `json:"no_groups"`

	Drawn    []string       `json:"drawn"` // sampling order
	Outcomes []*Outcome     `json:"outcomes"`
	Skipped  []string       `json:"skipped"` // groups with no unselected records
	Failures []GroupFailure `json:"failures"`
}

// GroupFailure is a group whose selection failed and was rolled back.
type GroupFailure struct {
	GroupID string `json:"group_id"`
	Error   string `json:"error"`
	Err     error  `json:"-"`
}

// SelectBatch samples k distinct groups (optionally limited to one group
// type) and runs SelectAndCompute on each in draw order.
//
// A group's failure is recorded in the report and the batch moves on, unless
// the error means the store itself is unusable or ctx is done; then the batch
// stops and the partial report is returned with the error.
func (s *Selector) SelectBatch(ctx context.Context, k int, seed *int64, groupType string) (*BatchReport, error) {
	report := &BatchReport{
		RunID:     s.runID,
		Seed:      seed,
		GroupType: groupType,
		Requested: k,
		Drawn:     []string{},
		Outcomes:  []*Outcome{},
		Skipped:   []string{},
		Failures:  []GroupFailure{},
	}

	groups, err := s.store.Groups(ctx, groupType)
	if err != nil {
		return report, fmt.Errorf("list groups: %w", err)
	}
	if len(groups) == 0 {
		report.NoGroups = true
		return report, nil
	}
	// Sampling must not depend on the store's row order.
	slices.Sort(groups)

	report.Drawn = sample(groupsRand(seed, groupType), groups, k)
	s.logger.Debug("sampled groups",
		"run_id", s.runID,
		"available", len(groups),
		"drawn", len(report.Drawn),
	)

	for _, groupID := range report.Drawn {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		out, err := s.SelectAndComputeOfType(ctx, groupType, groupID, seed)
		if err != nil {
			if store.IsUnusable(err) || ctx.Err() != nil {
				return report, err
			}
			s.logger.Warn("group selection failed",
				"group_id", groupID,
				"run_id", s.runID,
				"error", err,
			)
			report.Failures = append(report.Failures, GroupFailure{
				GroupID: groupID,
				Error:   err.Error(),
				Err:     err,
			})
			continue
		}
		if out == nil {
			report.Skipped = append(report.Skipped, groupID)
			continue
		}
		report.Outcomes = append(report.Outcomes, out)
	}
	return report, nil
}

package selector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/racksim/internal/compute"
	"github.com/roach88/racksim/internal/normalize"
	"github.com/roach88/racksim/internal/record"
	"github.com/roach88/racksim/internal/store"
)

// Store is the persistence the selector needs. Implemented by *store.Store.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx *store.Tx) error) error
	Groups(ctx context.Context, entityType string) ([]string, error)
}

// Clock supplies selection timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Selector runs selections against a store. All selections made through one
// Selector share its run id.
type Selector struct {
	store  Store
	engine compute.Engine
	clock  Clock
	logger *slog.Logger
	runID  string
}

// Option configures a Selector.
type Option func(*Selector)

// WithClock sets the clock used to stamp selections.
func WithClock(c Clock) Option {
	return func(s *Selector) {
		s.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) {
		s.logger = l
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(s *Selector) {
		s.runID = id
	}
}

// New creates a Selector. Unless WithRunID is given, the run id is a fresh
// UUIDv7 so selection rows sort by run start.
func New(st Store, eng compute.Engine, opts ...Option) *Selector {
	s := &Selector{
		store:  st,
		engine: eng,
		clock:  systemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = uuid.Must(uuid.NewV7()).String()
	}
	return s
}

// RunID returns the id stamped on every selection this Selector makes.
func (s *Selector) RunID() string {
	return s.runID
}

// Outcome describes one successful selection.
type Outcome struct {
	GroupID          string          `json:"group_id"`
	RecordID         int64           `json:"record_id"`
	SelectionID      int64           `json:"selection_id"`
	DisplayName      string          `json:"display_name"`
	OriginalEntityID string          `json:"original_entity_id"`
	Seed             *int64          `json:"seed"`
	RunID            string          `json:"run_id"`
	SelectedAt       string          `json:"selected_at"`
	Payload          compute.Payload `json:"payload"`
	Metrics          compute.Metrics `json:"metrics"`
}

// SelectAndCompute picks one never-selected record of groupID, computes its
// metrics, writes them back and logs the selection, all in one transaction.
//
// Returns (nil, nil) when the group has no unselected records left. With a
// non-nil seed the choice is reproducible for the same candidate set.
func (s *Selector) SelectAndCompute(ctx context.Context, groupID string, seed *int64) (*Outcome, error) {
	return s.SelectAndComputeOfType(ctx, "", groupID, seed)
}

// SelectAndComputeOfType is SelectAndCompute limited to the records of
// groupID whose entity type is groupType. An empty groupType matches every
// type.
func (s *Selector) SelectAndComputeOfType(ctx context.Context, groupType, groupID string, seed *int64) (*Outcome, error) {
	var out *Outcome

	err := s.store.WithinTx(ctx, func(tx *store.Tx) error {
		candidates, err := tx.UnselectedCandidates(ctx, groupType, groupID)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		rng := recordRand(seed, groupID)
		chosen := candidates[rng.IntN(len(candidates))]

		payload := s.assemblePayload(chosen)
		metrics := s.engine.Compute(payload)

		if err := tx.UpdateResults(ctx, chosen.ID, metrics.Results()); err != nil {
			return err
		}

		sel := record.Selection{
			RecordID:         chosen.ID,
			DisplayName:      record.DisplayName(chosen.ID),
			OriginalEntityID: originalEntityID(chosen),
			GroupID:          groupID,
			SelectedAt:       s.clock.Now().UTC().Format(record.TimeLayout),
			Seed:             seed,
			RunID:            s.runID,
		}
		selID, err := tx.InsertSelection(ctx, sel)
		if err != nil {
			return err
		}

		out = &Outcome{
			GroupID:          groupID,
			RecordID:         chosen.ID,
			SelectionID:      selID,
			DisplayName:      sel.DisplayName,
			OriginalEntityID: sel.OriginalEntityID,
			Seed:             seed,
			RunID:            s.runID,
			SelectedAt:       sel.SelectedAt,
			Payload:          payload,
			Metrics:          metrics,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", groupID, err)
	}

	if out == nil {
		s.logger.Debug("no unselected records", "group_id", groupID)
		return nil, nil
	}
	s.logger.Debug("selected record",
		"group_id", groupID,
		"record_id", out.RecordID,
		"selection_id", out.SelectionID,
		"run_id", s.runID,
	)
	return out, nil
}

// assemblePayload builds the compute input from the stored record, falling
// back to the raw document for inputs normalization left unset.
func (s *Selector) assemblePayload(rec record.Record) compute.Payload {
	p := compute.Payload{
		ServerWorkloadPercent: rec.Inputs.ServerWorkloadPercent,
		InletTempC:            rec.Inputs.InletTempC,
		AmbientTempC:          rec.Inputs.AmbientTempC,
		ChillerUsagePercent:   rec.Results.ChillerUsagePercent,
		AHUUsagePercent:       rec.Results.AHUUsagePercent,
	}
	if p.Complete() || len(rec.Raw) == 0 {
		return p
	}

	fromRaw, err := normalize.PayloadFromRaw(rec.Raw)
	if err != nil {
		s.logger.Debug("raw payload unreadable, using defaults",
			"record_id", rec.ID,
			"error", err,
		)
		return p
	}
	p.Fill(fromRaw)
	return p
}

func originalEntityID(rec record.Record) string {
	if id := normalize.OriginalEntityID(rec.Raw); id != "" {
		return id
	}
	return record.DisplayName(rec.ID)
}

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/roach88/racksim/internal/metrics"
	"github.com/roach88/racksim/internal/normalize"
	"github.com/roach88/racksim/internal/store"
)

// IngestSummary reports the outcome of an ingestion run.
type IngestSummary struct {
	Source    string            `json:"source"`
	Documents int               `json:"documents"`
	Inserted  int               `json:"inserted"`
	Failed    int               `json:"failed"`
	IDs       []int64           `json:"ids"`
	Failures  []DocumentFailure `json:"failures"`
}

// DocumentFailure is one rejected document.
type DocumentFailure struct {
	Index   int    `json:"index"` // position in the input batch
	Reason  string `json:"reason"`
	Error   string `json:"error"`
	Snippet string `json:"snippet"`
}

// IngestFile runs ingestion over the JSON document or array at path.
func (d *Driver) IngestFile(ctx context.Context, path string) (*IngestSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &IngestSummary{Source: path, IDs: []int64{}, Failures: []DocumentFailure{}},
			fmt.Errorf("read input: %w", err)
	}
	return d.Ingest(ctx, path, data)
}

// Ingest normalizes and inserts every document in data, in input order.
//
// Per-document failures are logged and counted and never stop the run. The
// run stops early, returning the partial summary and the error, only when
// data is not a JSON object or array, the context is done, or the store is
// unusable.
func (d *Driver) Ingest(ctx context.Context, source string, data []byte) (*IngestSummary, error) {
	summary := &IngestSummary{Source: source, IDs: []int64{}, Failures: []DocumentFailure{}}
	defer func() { d.metrics.RunFinished("ingest", time.Now()) }()

	docs, err := normalize.SplitDocuments(data)
	if err != nil {
		return summary, fmt.Errorf("read documents from %s: %w", source, err)
	}
	summary.Documents = len(docs)

	for i, raw := range docs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		rec, err := normalize.Normalize(raw)
		if err != nil {
			d.reject(summary, i, raw, err)
			continue
		}

		id, err := d.store.InsertRecord(ctx, rec)
		if err != nil {
			if store.IsUnusable(err) {
				return summary, fmt.Errorf("ingest %s: document %d: %w", source, i, err)
			}
			d.reject(summary, i, raw, err)
			continue
		}

		summary.Inserted++
		summary.IDs = append(summary.IDs, id)
		d.metrics.DocumentIngested()
		d.logger.Debug("document stored",
			"index", i,
			"id", id,
			"entity_id", rec.EntityID,
		)
	}

	d.logger.Info("ingest complete",
		"source", source,
		"documents", summary.Documents,
		"inserted", summary.Inserted,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (d *Driver) reject(summary *IngestSummary, index int, raw json.RawMessage, err error) {
	reason := failureReason(err)
	snippet := truncate(raw, d.snippetBytes)

	summary.Failed++
	summary.Failures = append(summary.Failures, DocumentFailure{
		Index:   index,
		Reason:  reason,
		Error:   err.Error(),
		Snippet: snippet,
	})
	d.metrics.DocumentFailed(reason)
	d.logger.Warn("document rejected",
		"index", index,
		"reason", reason,
		"error", err,
		"snippet", snippet,
	)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, normalize.ErrInvalidInputKind):
		return metrics.ReasonInvalidInput
	case normalize.IsDocumentError(err):
		return metrics.ReasonMalformed
	default:
		return metrics.ReasonStore
	}
}

// truncate returns at most n bytes of raw, cut on a rune boundary, with an
// ellipsis when anything was dropped.
func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return string(raw[:cut]) + "..."
}

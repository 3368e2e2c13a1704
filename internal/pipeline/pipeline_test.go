package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racksim/internal/compute"
	"github.com/roach88/racksim/internal/metrics"
	"github.com/roach88/racksim/internal/record"
	"github.com/roach88/racksim/internal/store"
	"github.com/roach88/racksim/internal/testutil"
)

type fixture struct {
	store   *store.Store
	driver  *Driver
	logs    *bytes.Buffer
	metrics *metrics.Recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logs := &bytes.Buffer{}
	rec := metrics.New()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithMetrics(rec),
		WithClock(testutil.NewDeterministicClock()),
		WithRunID("run-test"),
	}
	d := New(st, compute.New(compute.DefaultConfig()), append(base, opts...)...)
	return &fixture{store: st, driver: d, logs: logs, metrics: rec}
}

func TestIngest_BatchWithOneBadDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data := testutil.Batch(
		testutil.RackDocument("rack-1", "2025-01-01T00:00:00Z", 50, 22),
		json.RawMessage(`[1, 2, 3]`),
		testutil.LegacyDocument("rack-2", "2025-01-01T00:05:00Z", 30, 21),
		testutil.RackDocument("rack-1", "2025-01-01T00:10:00Z", 60, 23),
	)

	summary, err := f.driver.Ingest(ctx, "batch.json", data)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Documents)
	assert.Equal(t, 3, summary.Inserted)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, summary.IDs, 3)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, 1, summary.Failures[0].Index)
	assert.Equal(t, metrics.ReasonInvalidInput, summary.Failures[0].Reason)
	assert.Equal(t, "[1,2,3]", summary.Failures[0].Snippet)

	groups, err := f.store.Groups(ctx, "rack")
	require.NoError(t, err)
	assert.Equal(t, []string{"rack-1", "rack-2"}, groups)

	// input order is insertion order
	first, err := f.store.ReadRecord(ctx, summary.IDs[0])
	require.NoError(t, err)
	assert.Equal(t, 50.0, *first.Inputs.ServerWorkloadPercent)

	assert.Contains(t, f.logs.String(), "document rejected")
	assert.Contains(t, f.logs.String(), "ingest complete")

	expected := `
# HELP racksim_documents_ingested_total Documents normalized and stored.
# TYPE racksim_documents_ingested_total counter
racksim_documents_ingested_total 3
# HELP racksim_documents_failed_total Documents rejected during ingestion, by reason.
# TYPE racksim_documents_failed_total counter
racksim_documents_failed_total{reason="invalid_input"} 1
`
	require.NoError(t, promtestutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected),
		"racksim_documents_ingested_total", "racksim_documents_failed_total"))
}

func TestIngest_SingleObject(t *testing.T) {
	f := newFixture(t)

	summary, err := f.driver.Ingest(context.Background(), "one.json",
		testutil.RackDocument("rack-9", "2025-01-01T00:00:00Z", 10, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Documents)
	assert.Equal(t, 1, summary.Inserted)
	assert.Empty(t, summary.Failures)
}

func TestIngest_SnippetIsTruncated(t *testing.T) {
	f := newFixture(t, WithSnippetBytes(16))

	long := `"` + strings.Repeat("x", 100) + `"`
	summary, err := f.driver.Ingest(context.Background(), "strings.json", []byte("["+long+"]"))
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, long[:16]+"...", summary.Failures[0].Snippet)
}

func TestIngest_NotABatch(t *testing.T) {
	f := newFixture(t)

	summary, err := f.driver.Ingest(context.Background(), "bad.json", []byte(`{"unterminated": `))
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Inserted)

	_, err = f.driver.Ingest(context.Background(), "scalar.json", []byte(`42`))
	require.Error(t, err)
}

func TestIngest_UnusableStoreStopsRun(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	data := testutil.Batch(
		testutil.RackDocument("rack-1", "2025-01-01T00:00:00Z", 50, 22),
		testutil.RackDocument("rack-2", "2025-01-01T00:00:00Z", 50, 22),
	)
	summary, err := f.driver.Ingest(context.Background(), "batch.json", data)
	require.Error(t, err)
	assert.True(t, store.IsUnusable(err))
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 0, summary.Failed)
}

func TestIngest_CanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.driver.Ingest(ctx, "batch.json", testutil.Batch(testutil.RackDocument("r", "t", 1, 1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, testutil.Batch(
		testutil.RackDocument("rack-1", "2025-01-01T00:00:00Z", 50, 22),
	), 0o600))

	summary, err := f.driver.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, summary.Source)
	assert.Equal(t, 1, summary.Inserted)

	_, err = f.driver.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate([]byte("abc"), 3))
	assert.Equal(t, "ab...", truncate([]byte("abc"), 2))
	// "é" is two bytes; never split it
	assert.Equal(t, "a...", truncate([]byte("aé"), 2))
	assert.Equal(t, "...", truncate([]byte("éé"), 1))
}

func TestSelect_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.driver.Ingest(ctx, "batch.json", testutil.Batch(
		testutil.RackDocument("rack-a", "2025-01-01T00:00:00Z", 50, 22),
		testutil.RackDocument("rack-a", "2025-01-01T00:05:00Z", 55, 22),
		testutil.RackDocument("rack-b", "2025-01-01T00:00:00Z", 20, 21),
		testutil.LegacyDocument("rack-c", "2025-01-01T00:00:00Z", 80, 24),
	))
	require.NoError(t, err)

	report, err := f.driver.Select(ctx, 5, record.Int(42), "")
	require.NoError(t, err)
	assert.Equal(t, "run-test", report.RunID)
	assert.Len(t, report.Drawn, 3)
	assert.Len(t, report.Outcomes, 3)

	// rack-a still has one unselected record; the others are exhausted
	report, err = f.driver.Select(ctx, 5, record.Int(42), "")
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "rack-a", report.Outcomes[0].GroupID)
	assert.ElementsMatch(t, []string{"rack-b", "rack-c"}, report.Skipped)

	sels, err := f.store.ReadSelections(ctx, "")
	require.NoError(t, err)
	assert.Len(t, sels, 4)

	assert.Contains(t, f.logs.String(), "selection complete")

	expected := `
# HELP racksim_selections_total Records selected and computed.
# TYPE racksim_selections_total counter
racksim_selections_total 4
# HELP racksim_groups_skipped_total Sampled groups with no unselected records left.
# TYPE racksim_groups_skipped_total counter
racksim_groups_skipped_total 2
`
	require.NoError(t, promtestutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected),
		"racksim_selections_total", "racksim_groups_skipped_total"))
}

func TestSelect_NoGroups(t *testing.T) {
	f := newFixture(t)

	report, err := f.driver.Select(context.Background(), 5, nil, "")
	require.NoError(t, err)
	assert.True(t, report.NoGroups)
	assert.Contains(t, f.logs.String(), "no groups available")
}

func TestSelect_ClosedStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	_, err := f.driver.Select(context.Background(), 5, nil, "")
	require.Error(t, err)
	assert.True(t, store.IsUnusable(err))
}

func TestNew_Defaults(t *testing.T) {
	d := New(nil, compute.New(compute.DefaultConfig()), WithSnippetBytes(-1))
	assert.Equal(t, DefaultSnippetBytes, d.snippetBytes)
	assert.Nil(t, d.metrics)
	assert.NotNil(t, d.logger)

	d = New(nil, nil, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	assert.NotNil(t, d.clock)
}

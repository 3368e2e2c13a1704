// Package metrics counts ingestion and selection activity with Prometheus
// collectors on a private registry, for export as a node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons for rejected documents.
const (
	ReasonInvalidInput = "invalid_input"
	ReasonMalformed    = "malformed"
	ReasonStore        = "store"
)

// Recorder holds the run counters. A nil *Recorder discards everything, so
// callers never need to check whether metrics are enabled.
type Recorder struct {
	registry *prometheus.Registry

	docsIngested    prometheus.Counter
	docsFailed      *prometheus.CounterVec
	selections      prometheus.Counter
	groupsSkipped   prometheus.Counter
	groupsFailed    prometheus.Counter
	selectDuration  prometheus.Histogram
	lastRunUnixTime *prometheus.GaugeVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		docsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "racksim_documents_ingested_total",
			Help: "Documents normalized and stored.",
		}),
		docsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "racksim_documents_failed_total",
			Help: "Documents rejected during ingestion, by reason.",
		}, []string{"reason"}),
		selections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "racksim_selections_total",
			Help: "Records selected and computed.",
		}),
		groupsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "racksim_groups_skipped_total",
			Help: "Sampled groups with no unselected records left.",
		}),
		groupsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "racksim_groups_failed_total",
			Help: "Sampled groups whose selection was rolled back.",
		}),
		selectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "racksim_select_run_duration_seconds",
			Help:    "Wall time of a selection run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		lastRunUnixTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "racksim_last_run_timestamp_seconds",
			Help: "Unix time a run of each kind last finished.",
		}, []string{"run"}),
	}
	r.registry.MustRegister(
		r.docsIngested,
		r.docsFailed,
		r.selections,
		r.groupsSkipped,
		r.groupsFailed,
		r.selectDuration,
		r.lastRunUnixTime,
	)
	return r
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) DocumentIngested() {
	if r != nil {
		r.docsIngested.Inc()
	}
}

func (r *Recorder) DocumentFailed(reason string) {
	if r != nil {
		r.docsFailed.WithLabelValues(reason).Inc()
	}
}

func (r *Recorder) Selected() {
	if r != nil {
		r.selections.Inc()
	}
}

func (r *Recorder) GroupSkipped() {
	if r != nil {
		r.groupsSkipped.Inc()
	}
}

func (r *Recorder) GroupFailed() {
	if r != nil {
		r.groupsFailed.Inc()
	}
}

// ObserveSelectRun records the duration of a selection run.
func (r *Recorder) ObserveSelectRun(d time.Duration) {
	if r != nil {
		r.selectDuration.Observe(d.Seconds())
	}
}

// RunFinished stamps the completion time of a run kind ("ingest", "select").
func (r *Recorder) RunFinished(run string, at time.Time) {
	if r != nil {
		r.lastRunUnixTime.WithLabelValues(run).Set(float64(at.Unix()))
	}
}

// WriteTextfile writes every collector in the text exposition format to path,
// atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

package pipeline

import (
	"log/slog"
	"time"

	"github.com/roach88/racksim/internal/compute"
	"github.com/roach88/racksim/internal/metrics"
	"github.com/roach88/racksim/internal/selector"
	"github.com/roach88/racksim/internal/store"
)

// DefaultSnippetBytes is how much of a rejected document is logged.
const DefaultSnippetBytes = 400

// Driver runs ingestion and selection against one store.
type Driver struct {
	store        *store.Store
	engine       compute.Engine
	logger       *slog.Logger
	metrics      *metrics.Recorder
	clock        selector.Clock
	snippetBytes int
	runID        string
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithMetrics sets the recorder. Default: nil (metrics discarded).
func WithMetrics(m *metrics.Recorder) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithClock sets the clock used for selection timestamps.
func WithClock(c selector.Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// WithSnippetBytes caps the logged view of a rejected document.
// Non-positive values keep the default.
func WithSnippetBytes(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.snippetBytes = n
		}
	}
}

// WithRunID fixes the selection run id instead of generating one per run.
func WithRunID(id string) Option {
	return func(d *Driver) {
		d.runID = id
	}
}

// New creates a Driver.
func New(st *store.Store, eng compute.Engine, opts ...Option) *Driver {
	d := &Driver{
		store:        st,
		engine:       eng,
		logger:       slog.Default(),
		clock:        wallClock{},
		snippetBytes: DefaultSnippetBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

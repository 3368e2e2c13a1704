// Package config loads racksim configuration: built-in defaults, overlaid by
// an optional YAML file, checked against a CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/racksim/internal/compute"
)

//go:embed schema.cue
var schemaCUE string

// Config is the complete runtime configuration.
type Config struct {
	Database string         `yaml:"database" json:"database"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Ingest   IngestConfig   `yaml:"ingest" json:"ingest"`
	Select   SelectConfig   `yaml:"select" json:"select"`
	Compute  compute.Config `yaml:"compute" json:"compute"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text or json
}

// IngestConfig controls ingestion runs.
type IngestConfig struct {
	// SnippetBytes caps how much of a rejected document is logged.
	SnippetBytes int `yaml:"snippet_bytes" json:"snippet_bytes"`
}

// SelectConfig controls selection runs.
type SelectConfig struct {
	Groups    int    `yaml:"groups" json:"groups"`
	GroupType string `yaml:"group_type" json:"group_type"` // "" for all types
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	File string `yaml:"file" json:"file"` // "" disables export
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: "db/telemetry.db",
		Log:      LogConfig{Level: "info", Format: "text"},
		Ingest:   IngestConfig{SnippetBytes: 400},
		Select:   SelectConfig{Groups: 5},
		Compute:  compute.DefaultConfig(),
	}
}

// SlogLevel maps the configured level onto slog. Unknown levels map to info;
// Validate rejects them before this is reached.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load returns Default overlaid with the YAML file at path, validated.
// An empty path yields the validated defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cfg against the embedded CUE schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(cfg)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return errors.New(strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

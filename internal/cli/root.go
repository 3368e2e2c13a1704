package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/racksim/internal/config"
	"github.com/roach88/racksim/internal/metrics"
	"github.com/roach88/racksim/internal/selector"
	"github.com/roach88/racksim/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ConfigPath  string
	Database    string // overrides config database when set
	MetricsFile string // overrides config metrics.file when set

	// Clock and RunID override selection stamps (for testing).
	Clock selector.Clock
	RunID string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the racksim CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "racksim",
		Short: "racksim - rack telemetry ingestion and simulation",
		Long: `Ingest datacenter rack telemetry into SQLite and run seeded,
non-repeating selections that compute power, temperature and cost metrics
for sampled racks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")

	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewLatestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewComputeCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// env is what a command needs once config is loaded.
type env struct {
	cfg       config.Config
	logger    *slog.Logger
	formatter *OutputFormatter
	metrics   *metrics.Recorder
	store     *store.Store // nil unless opened
}

// loadEnv loads config, applies flag overrides and builds the logger.
func loadEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, "invalid configuration", err.Error())
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.ConfigPath != "" {
		formatter.VerboseLog("loaded config from %s", opts.ConfigPath)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.MetricsFile != "" {
		cfg.Metrics.File = opts.MetricsFile
	}

	e := &env{
		cfg:       cfg,
		logger:    newLogger(cmd.ErrOrStderr(), cfg.Log, opts.Verbose),
		formatter: formatter,
	}
	if cfg.Metrics.File != "" {
		e.metrics = metrics.New()
	}
	return e, nil
}

// openEnv is loadEnv plus an open store. The caller must call close.
func openEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	e, err := loadEnv(opts, cmd)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("opening database", "path", e.cfg.Database)
	st, err := store.Open(e.cfg.Database)
	if err != nil {
		_ = e.formatter.Error(ErrCodeStore, "failed to open database", err.Error())
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	e.store = st
	return e, nil
}

// close writes the metrics textfile if configured and closes the store.
func (e *env) close() {
	if e.metrics != nil {
		if err := e.metrics.WriteTextfile(e.cfg.Metrics.File); err != nil {
			e.logger.Error("error writing metrics", "path", e.cfg.Metrics.File, "error", err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("error closing database", "error", err)
		}
	}
}

// newLogger builds the slog logger: debug when verbose, otherwise the
// configured level; text unless log.format is json.
func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/racksim/internal/compute"
	"github.com/roach88/racksim/internal/normalize"
	"github.com/roach88/racksim/internal/pipeline"
	"github.com/roach88/racksim/internal/store"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Normalize and store telemetry documents",
		Long: `Read a JSON document or an array of documents, normalize each one and
insert it into the database.

A document that cannot be normalized or stored is logged with a truncated
view and counted; the remaining documents are still ingested.

Example:
  racksim ingest ./telemetry.json
  racksim ingest --db /tmp/racks.db --format json ./batch.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runIngest(opts *RootOptions, path string, cmd *cobra.Command) error {
	e, err := openEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	driver := pipeline.New(e.store, compute.New(e.cfg.Compute),
		pipeline.WithLogger(e.logger),
		pipeline.WithMetrics(e.metrics),
		pipeline.WithSnippetBytes(e.cfg.Ingest.SnippetBytes),
	)

	summary, err := driver.IngestFile(cmd.Context(), path)
	if err != nil {
		code, exit := ErrCodeRun, ExitFailure
		switch {
		case errors.Is(err, os.ErrNotExist), normalize.IsDocumentError(err), errors.Is(err, normalize.ErrUnsupportedBatch):
			code, exit = ErrCodeInput, ExitCommandError
		case store.IsUnusable(err):
			code = ErrCodeStore
		}
		if e.formatter.IsJSON() {
			_ = e.formatter.Failure(code, err.Error(), summary)
		} else {
			writeIngestSummary(e.formatter.Writer, summary)
			_ = e.formatter.Error(code, err.Error(), nil)
		}
		return WrapExitError(exit, "ingest failed", err)
	}

	if e.formatter.IsJSON() {
		return e.formatter.Success(summary)
	}
	writeIngestSummary(e.formatter.Writer, summary)
	return nil
}

func writeIngestSummary(w io.Writer, s *pipeline.IngestSummary) {
	fmt.Fprintf(w, "Ingested %d of %d document(s) from %s\n", s.Inserted, s.Documents, s.Source)
	if s.Failed == 0 {
		return
	}
	fmt.Fprintf(w, "%d document(s) rejected:\n", s.Failed)
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  #%d [%s] %s\n", f.Index, f.Reason, f.Error)
	}
}

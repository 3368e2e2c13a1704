package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Group string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past selections",
		Long: `List the selection log in selection order, optionally for one group.

Example:
  racksim history
  racksim history --group rack-7 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Group, "group", "", "only this group")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	selections, err := e.store.ReadSelections(cmd.Context(), opts.Group)
	if err != nil {
		_ = e.formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "read selections failed", err)
	}

	if e.formatter.IsJSON() {
		return e.formatter.Success(selections)
	}
	if len(selections) == 0 {
		fmt.Fprintln(e.formatter.Writer, "No selections")
		return nil
	}
	for _, s := range selections {
		seed := "-"
		if s.Seed != nil {
			seed = fmt.Sprint(*s.Seed)
		}
		fmt.Fprintf(e.formatter.Writer, "%s %s %s orig=%s seed=%s run=%s\n",
			s.SelectedAt, s.GroupID, s.DisplayName, s.OriginalEntityID, seed, s.RunID)
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the document with the empty document",
		Long: `Replace the document with the empty document and persist it.

The status, state and both logs are discarded.

Example:
  dpstore reset --db ./dpstore.db --subject order-1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(opts, cmd)
		},
	}

	addStoreFlags(cmd, opts)

	return cmd
}

func runReset(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	es, release, err := bindStore(cmd.Context(), opts, formatter, logger)
	if err != nil {
		return err
	}
	defer release()

	discarded := len(es.Events())
	if err := es.Reset(cmd.Context()); err != nil {
		return reportStoreError(formatter, "reset", err)
	}

	if formatter.Structured() {
		return formatter.Success(map[string]any{
			"subject":   opts.Subject,
			"field":     opts.Field,
			"discarded": discarded,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ Reset %s/%s (%d events discarded)\n", opts.Subject, opts.Field, discarded)
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current status and state",
		Long: `Show the current status, the accumulated state and the number of
committed events of a document.

Examples:
  dpstore status --db ./dpstore.db --subject order-1
  dpstore status --db ./dpstore.db --subject order-1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	addStoreFlags(cmd, opts)

	return cmd
}

func runStatus(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	es, release, err := bindStore(cmd.Context(), opts, formatter, logger)
	if err != nil {
		return err
	}
	defer release()

	view := newStatusView(opts.Subject, opts.Field, es.Document())
	if formatter.Structured() {
		return formatter.Success(view)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Subject: %s\n", view.Subject)
	fmt.Fprintf(w, "Field:   %s\n", view.Field)
	fmt.Fprintf(w, "Status:  %s\n", statusText(view.Status))
	fmt.Fprintf(w, "State:   %s\n", canonical(es.State()))
	fmt.Fprintf(w, "Events:  %d\n", view.Events)
	return nil
}

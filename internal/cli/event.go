package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewEventCommand creates the event command.
func NewEventCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "event <event-id>",
		Short: "Show one committed attempt",
		Long: `Show the event record and the error record of one committed attempt.

Exits with code 1 when the event id was never committed.

Example:
  dpstore event --db ./dpstore.db --subject order-1 e1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvent(opts, args[0], cmd)
		},
	}

	addStoreFlags(cmd, opts)

	return cmd
}

func runEvent(opts *StoreOptions, eventID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	es, release, err := bindStore(cmd.Context(), opts, formatter, logger)
	if err != nil {
		return err
	}
	defer release()

	found, ok := es.FindEvent(eventID)
	if !ok {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("event %q not found", eventID), nil)
	}

	view := newEventView(found)
	if formatter.Structured() {
		return formatter.Success(view)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Event: %s\n", view.ID)
	if view.Transition != "" {
		fmt.Fprintf(w, "Transition: %s\n", view.Transition)
	}
	if view.Failed {
		fmt.Fprintf(w, "Result: failed (%s: %s)\n", view.ErrorKind, view.ErrorMessage)
	} else {
		fmt.Fprintln(w, "Result: ok")
	}
	fmt.Fprintf(w, "Data:  %s\n", canonical(found.Data))
	fmt.Fprintf(w, "Error: %s\n", canonical(found.Error))
	return nil
}

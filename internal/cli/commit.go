package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dpstore/internal/engine"
	"github.com/roach88/dpstore/internal/ir"
)

// CommitOptions holds flags for the commit command.
type CommitOptions struct {
	StoreOptions
	EventID     string
	Success     bool
	Destination string
	Changes     string
	Error       string
	Data        string
}

// CommitResult is printed after a successful commit.
type CommitResult struct {
	EventID string  `json:"event_id" yaml:"event_id"`
	Status  *string `json:"status" yaml:"status"`
	Events  int     `json:"events" yaml:"events"`
}

// NewCommitCommand creates the commit command.
func NewCommitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CommitOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit the outcome of a transition attempt",
		Long: `Commit the outcome of one transition attempt and persist the document.

On --success the status becomes --destination. --changes is merged into
the state whether or not the attempt succeeded. The event and error
records are stored under the event id; an omitted record is stored as {}.

Examples:
  dpstore commit --db ./dpstore.db -s order-1 --success --destination active \
    --changes '{"count":1}'
  dpstore commit --db ./dpstore.db -s order-1 --event-id e2 \
    --error '{"error":"Timeout","error_message":"upstream timed out"}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommit(opts, cmd)
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions)
	cmd.Flags().StringVar(&opts.EventID, "event-id", "", "event id (default: a new UUIDv7)")
	cmd.Flags().BoolVar(&opts.Success, "success", false, "mark the attempt as successful")
	cmd.Flags().StringVar(&opts.Destination, "destination", "", "status to move to on success")
	cmd.Flags().StringVar(&opts.Changes, "changes", "", "state changes as a JSON object")
	cmd.Flags().StringVar(&opts.Error, "error", "", "error record as a JSON object")
	cmd.Flags().StringVar(&opts.Data, "data", "", "event record as a JSON object")

	return cmd
}

func runCommit(opts *CommitOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	outcome, err := opts.outcome()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err.Error(), nil)
	}

	es, release, err := bindStore(cmd.Context(), &opts.StoreOptions, formatter, logger)
	if err != nil {
		return err
	}
	defer release()

	if err := es.Commit(cmd.Context(), outcome); err != nil {
		return reportStoreError(formatter, "commit", err)
	}

	result := CommitResult{
		EventID: outcome.EventID,
		Status:  es.Document().Status,
		Events:  len(es.Events()),
	}
	if formatter.Structured() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Committed %s (status: %s, events: %d)\n",
		result.EventID, statusText(result.Status), result.Events)
	return nil
}

// outcome builds the outcome described by the flags.
func (o *CommitOptions) outcome() (ir.Outcome, error) {
	out := ir.Outcome{
		EventID:     o.EventID,
		Success:     o.Success,
		Destination: o.Destination,
	}
	if out.EventID == "" {
		out.EventID = engine.UUIDv7Generator{}.Generate()
	}

	var err error
	if out.Changes, err = parseObject("changes", o.Changes); err != nil {
		return ir.Outcome{}, err
	}
	if out.Error, err = parseObject("error", o.Error); err != nil {
		return ir.Outcome{}, err
	}
	if out.Data, err = parseObject("data", o.Data); err != nil {
		return ir.Outcome{}, err
	}
	return out, nil
}

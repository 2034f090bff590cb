package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dpstore/internal/store"
)

// InitResult reports whether init created the document.
type InitResult struct {
	Subject string `json:"subject" yaml:"subject"`
	Field   string `json:"field" yaml:"field"`
	Created bool   `json:"created" yaml:"created"`
	Events  int    `json:"events" yaml:"events"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Bind a subject field, creating an empty document if needed",
		Long: `Bind a subject field and make sure it holds a document.

An empty field receives the empty document and is written immediately.
A field that already holds a valid document is left untouched.

Examples:
  dpstore init --db ./dpstore.db --subject order-1
  dpstore init --nats nats://localhost:4222 --subject order-1 --field fulfilment`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	addStoreFlags(cmd, opts)

	return cmd
}

func runInit(opts *StoreOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	subject, release, err := openSubject(ctx, opts, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStorage, "failed to open storage", err)
	}
	defer release()
	defer writeMetrics(opts.RootOptions, formatter.ErrWriter, logger)

	raw, err := subject.Field(ctx, opts.Field)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStorage, "failed to read field", err)
	}
	created := store.IsEmptyDocument(raw)

	es, err := store.Bind(ctx, subject, opts.Field, storeOptions(opts, logger)...)
	if err != nil {
		return reportStoreError(formatter, "init", err)
	}

	result := InitResult{
		Subject: opts.Subject,
		Field:   opts.Field,
		Created: created,
		Events:  len(es.Events()),
	}
	if formatter.Structured() {
		return formatter.Success(result)
	}

	if created {
		fmt.Fprintf(formatter.Writer, "✓ Initialized %s/%s\n", result.Subject, result.Field)
	} else {
		fmt.Fprintf(formatter.Writer, "✓ %s/%s already initialized (%d events)\n", result.Subject, result.Field, result.Events)
	}
	return nil
}

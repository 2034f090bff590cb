package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dpstore/internal/store"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the whole document",
		Long: `Print the whole document of a subject field.

Text output is the stored encoding. JSON and YAML output list events in
commit order together with their error records.

Examples:
  dpstore dump --db ./dpstore.db --subject order-1
  dpstore dump --db ./dpstore.db --subject order-1 --format yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd)
		},
	}

	addStoreFlags(cmd, opts)

	return cmd
}

func runDump(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	es, release, err := bindStore(cmd.Context(), opts, formatter, logger)
	if err != nil {
		return err
	}
	defer release()

	doc := es.Document()
	if formatter.Structured() {
		return formatter.Success(newDocumentView(opts.Subject, opts.Field, doc))
	}

	data, err := store.EncodeDocument(doc)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to encode document", err)
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}

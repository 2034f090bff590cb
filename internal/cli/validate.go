package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dpstore/internal/ir"
	"github.com/roach88/dpstore/internal/schema"
	"github.com/roach88/dpstore/internal/store"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid" yaml:"valid"`
	Empty  bool           `json:"empty,omitempty" yaml:"empty,omitempty"`
	Events int            `json:"events" yaml:"events"`
	Issues []schema.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
	Pairs  []ir.PairIssue `json:"unpaired,omitempty" yaml:"unpaired,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document.json>",
		Short: "Check a serialized document without binding it",
		Long: `Check a serialized document against the document schema.

The file must hold exactly the keys status, state, events and errors,
with typed event and error records, and every event id must appear in
both logs. An empty file is valid: binding it creates the empty document.

Example:
  dpstore validate ./order-1.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("file not found: %s", path), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read file", err)
	}
	formatter.VerboseLog("Read %d bytes from %s", len(data), path)

	if store.IsEmptyDocument(data) {
		return outputValidateSuccess(formatter, ValidationResult{Valid: true, Empty: true})
	}

	if err := schema.Validate(data); err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return outputValidationFailure(formatter, ErrCodeSchema, verr.Error(),
				ValidationResult{Issues: verr.Issues})
		}
		return outputValidationFailure(formatter, ErrCodeSchema, err.Error(), ValidationResult{})
	}
	formatter.VerboseLog("Schema check passed")

	doc, err := store.DecodeDocument(data)
	if err != nil {
		return outputValidationFailure(formatter, ErrCodeInvalidShape, err.Error(), ValidationResult{})
	}

	if pairs := doc.CheckPairs(); len(pairs) > 0 {
		return outputValidationFailure(formatter, ErrCodeUnpaired,
			fmt.Sprintf("%d event id(s) missing from one log", len(pairs)),
			ValidationResult{Events: doc.Events.Len(), Pairs: pairs})
	}

	return outputValidateSuccess(formatter, ValidationResult{Valid: true, Events: doc.Events.Len()})
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Structured() {
		return formatter.Success(result)
	}

	if result.Empty {
		fmt.Fprintln(formatter.Writer, "✓ Empty document")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ Document valid (%d events)\n", result.Events)
	return nil
}

// outputValidationFailure outputs a failed check with its issues.
func outputValidationFailure(formatter *OutputFormatter, code, message string, result ValidationResult) error {
	if formatter.Structured() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    code,
				Message: message,
			},
		}); err != nil {
			return err
		}
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	switch {
	case len(result.Issues) > 0:
		for _, issue := range result.Issues {
			if issue.Line > 0 {
				fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", code, issue.Path, issue.Message)
		}
	case len(result.Pairs) > 0:
		for _, p := range result.Pairs {
			fmt.Fprintf(formatter.Writer, "  %s: event %q has no %s record\n", code, p.EventID, p.Missing)
		}
	default:
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", code, message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message))
}

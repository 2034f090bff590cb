// Package schema checks serialized documents against an embedded CUE
// definition.
//
// The check is stricter than decoding: besides the four-key shape it also
// types the well-known fields of event and error records.
package schema

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed document.cue
var documentCUE string

// Issue is one schema violation.
type Issue struct {
	Path    string `json:"path" yaml:"path"`
	Message string `json:"message" yaml:"message"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Issues []Issue
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		if issue.Path == "" {
			parts[i] = issue.Message
			continue
		}
		parts[i] = issue.Path + ": " + issue.Message
	}
	return "document does not match schema: " + strings.Join(parts, "; ")
}

type compiled struct {
	ctx      *cue.Context
	document cue.Value
}

var load = sync.OnceValues(func() (*compiled, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(documentCUE, cue.Filename("document.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	return &compiled{
		ctx:      ctx,
		document: v.LookupPath(cue.ParsePath("#Document")),
	}, nil
})

// Validate checks a serialized document. It returns a *ValidationError when
// the document parses but violates the schema, and a plain error when it
// is not JSON at all.
func Validate(data []byte) error {
	c, err := load()
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract("document.json", data)
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	v := c.ctx.BuildExpr(expr)
	if err := v.Err(); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	unified := c.document.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Issues: issues(err)}
	}
	return nil
}

// issues flattens a CUE error list, sorted by path.
func issues(err error) []Issue {
	var out []Issue
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		issue := Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if pos := e.Position(); pos.IsValid() {
			issue.Line = pos.Line()
		}
		out = append(out, issue)
	}
	slices.SortStableFunc(out, func(a, b Issue) int {
		return strings.Compare(a.Path, b.Path)
	})
	return slices.CompactFunc(out, func(a, b Issue) bool {
		return a.Path == b.Path && a.Message == b.Message
	})
}

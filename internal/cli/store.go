package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dpstore/internal/ir"
	"github.com/roach88/dpstore/internal/store"
	"github.com/roach88/dpstore/internal/subject/natskv"
	"github.com/roach88/dpstore/internal/subject/sqlite"
)

// DefaultField is the subject field used when --field is not given.
const DefaultField = "pipeline"

// StoreOptions selects the subject and field a command operates on.
type StoreOptions struct {
	*RootOptions
	Database string // SQLite database path
	NATSURL  string // NATS server URL; takes precedence over Database
	Bucket   string // JetStream key-value bucket
	Subject  string
	Field    string
}

// addStoreFlags registers the flags shared by every command that binds
// an event store.
func addStoreFlags(cmd *cobra.Command, opts *StoreOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", os.Getenv("DPSTORE_DB"), "path to SQLite database (default $DPSTORE_DB)")
	cmd.Flags().StringVar(&opts.NATSURL, "nats", "", "NATS server URL; store fields in a JetStream key-value bucket")
	cmd.Flags().StringVar(&opts.Bucket, "bucket", natskv.DefaultBucket, "key-value bucket name (with --nats)")
	cmd.Flags().StringVarP(&opts.Subject, "subject", "s", "", "subject id (required)")
	cmd.Flags().StringVar(&opts.Field, "field", DefaultField, "subject field holding the document")
	_ = cmd.MarkFlagRequired("subject")
}

// openSubject opens the configured backend and returns the subject with
// the function that releases the backend.
func openSubject(ctx context.Context, opts *StoreOptions, logger *slog.Logger) (store.Subject, func(), error) {
	switch {
	case opts.NATSURL != "":
		logger.Debug("opening bucket", "url", opts.NATSURL, "bucket", opts.Bucket)
		bucket, err := natskv.Open(ctx, natskv.Config{
			Connect: natskv.ConnectURL(opts.NATSURL),
			Bucket:  opts.Bucket,
		})
		if err != nil {
			return nil, nil, err
		}
		return bucket.Subject(opts.Subject), bucket.Close, nil

	case opts.Database != "":
		logger.Debug("opening database", "path", opts.Database)
		db, err := sqlite.Open(opts.Database)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Error("error closing database", "error", err)
			}
		}
		return db.Row(opts.Subject), closeDB, nil

	default:
		return nil, nil, errors.New("no storage configured: pass --db or --nats")
	}
}

// bindStore opens the backend and binds an event store to the configured
// field. Failures are reported through f. The returned release function
// also prints the store metrics when --metrics is set.
func bindStore(ctx context.Context, opts *StoreOptions, f *OutputFormatter, logger *slog.Logger) (*store.EventStore, func(), error) {
	subject, closeBackend, err := openSubject(ctx, opts, logger)
	if err != nil {
		return nil, nil, f.Fail(ExitCommandError, ErrCodeStorage, "failed to open storage", err)
	}
	release := func() {
		closeBackend()
		writeMetrics(opts.RootOptions, f.ErrWriter, logger)
	}

	es, err := store.Bind(ctx, subject, opts.Field, storeOptions(opts, logger)...)
	if err != nil {
		release()
		return nil, nil, reportStoreError(f, "bind", err)
	}
	f.VerboseLog("Bound %s/%s (%d events)", opts.Subject, opts.Field, len(es.Events()))
	return es, release, nil
}

// reportStoreError maps an EventStore error to a CLI error code and exit code.
func reportStoreError(f *OutputFormatter, op string, err error) error {
	switch {
	case store.IsShapeError(err):
		return f.Fail(ExitFailure, ErrCodeInvalidShape, op+": stored document has an invalid shape", err)
	case store.IsPersistError(err):
		return f.Fail(ExitCommandError, ErrCodePersist, op+": document was not persisted", err)
	case errors.Is(err, store.ErrEventExists),
		errors.Is(err, store.ErrEmptyEventID),
		errors.Is(err, store.ErrMissingDestination),
		errors.Is(err, store.ErrInvalidOutcome),
		errors.Is(err, store.ErrTainted):
		return f.Fail(ExitFailure, ErrCodeRejected, op+": outcome rejected", err)
	default:
		return f.Fail(ExitCommandError, ErrCodeStorage, op+" failed", err)
	}
}

// parseObject decodes a JSON object flag. An empty value yields nil.
func parseObject(flag, value string) (ir.IRObject, error) {
	if value == "" {
		return nil, nil
	}
	var obj ir.IRObject
	if err := obj.UnmarshalJSON([]byte(value)); err != nil {
		return nil, fmt.Errorf("invalid --%s JSON: %w", flag, err)
	}
	return obj, nil
}

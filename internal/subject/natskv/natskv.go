// Package natskv stores subject fields in a NATS JetStream key-value bucket.
//
// Each field lives under the key "<subject>.<field>". Subject ids and field
// names are single key tokens: letters, digits and "-", "_", "=", "/".
// Writes use the key
// revision as a compare-and-set token: a subject that read revision N can
// only write while the key is still at N. A lost race surfaces as
// store.ErrConflict.
//
// The bucket has no multi-key transactions; a Save with several staged
// fields writes them one by one and stops at the first failure.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/roach88/dpstore/internal/store"
)

// DefaultBucket is used when Config.Bucket is empty.
const DefaultBucket = "dpstore_subjects"

// Config configures a Bucket.
type Config struct {
	// Connect opens the NATS connection. Default: ConnectDefault().
	Connect Connector

	// Bucket is the key-value bucket name. Default: DefaultBucket.
	Bucket string

	// Timeout bounds each key-value call. Default: 5s.
	Timeout time.Duration
}

// Bucket is an opened key-value bucket holding subject fields.
type Bucket struct {
	kv      jetstream.KeyValue
	close   closeFunc
	timeout time.Duration
}

// Open connects and creates the bucket when it doesn't exist yet.
func Open(ctx context.Context, cfg Config) (*Bucket, error) {
	connect := cfg.Connect
	if connect == nil {
		connect = ConnectDefault()
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	nc, closeConn, err := connect()
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "dpstore subject fields",
		Storage:     jetstream.FileStorage,
		History:     1,
	})
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("open bucket %q: %w", bucket, err)
	}

	return &Bucket{kv: kv, close: closeConn, timeout: timeout}, nil
}

// Close releases the NATS connection.
func (b *Bucket) Close() {
	if b.close != nil {
		b.close()
	}
}

// Subject returns the subject with the given id. Nothing is read until Field.
func (b *Bucket) Subject(id string) *Subject {
	return &Subject{
		bucket:    b,
		id:        id,
		revisions: make(map[string]uint64),
		staged:    make(map[string][]byte),
	}
}

// ErrInvalidKey is returned for a subject id or field name that is not a
// single key token.
var ErrInvalidKey = errors.New("invalid key token")

// Key returns the bucket key of a subject field.
func Key(subjectID, field string) (string, error) {
	if err := checkToken("subject id", subjectID); err != nil {
		return "", err
	}
	if err := checkToken("field", field); err != nil {
		return "", err
	}
	return subjectID + "." + field, nil
}

func checkToken(what, tok string) error {
	if tok == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidKey, what)
	}
	for _, r := range tok {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '=', r == '/':
		default:
			return fmt.Errorf("%w: %s %q contains %q", ErrInvalidKey, what, tok, r)
		}
	}
	return nil
}

// Subject is one subject stored in a Bucket. It implements store.Subject.
type Subject struct {
	bucket *Bucket
	id     string

	mu        sync.Mutex
	revisions map[string]uint64 // revision observed by Field; 0 = absent
	staged    map[string][]byte
}

// Field returns the stored value of name, or nil when the key doesn't exist.
func (s *Subject) Field(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.bucket.timeout)
	defer cancel()

	key, err := Key(s.id, name)
	if err != nil {
		return nil, err
	}
	var (
		value    []byte
		revision uint64
	)
	entry, err := s.bucket.kv.Get(ctx, key)
	switch {
	case errors.Is(err, jetstream.ErrKeyNotFound):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", key, err)
	default:
		value = slices.Clone(entry.Value())
		revision = entry.Revision()
	}

	s.mu.Lock()
	s.revisions[name] = revision
	s.mu.Unlock()
	return value, nil
}

// Revision returns the revision last observed or written for name.
func (s *Subject) Revision(name string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev, ok := s.revisions[name]
	return rev, ok
}

// SetField stages value for the next Save.
func (s *Subject) SetField(name string, value []byte) error {
	if _, err := Key(s.id, name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[name] = slices.Clone(value)
	return nil
}

// Save writes the staged fields. Fields written before a failure stay
// written; the failed field and the ones after it stay staged.
func (s *Subject) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.staged))
	for name := range s.staged {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		rev, err := s.write(ctx, name, s.staged[name])
		if err != nil {
			return err
		}
		s.revisions[name] = rev
		delete(s.staged, name)
	}
	return nil
}

func (s *Subject) write(ctx context.Context, name string, value []byte) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.bucket.timeout)
	defer cancel()

	key, err := Key(s.id, name)
	if err != nil {
		return 0, err
	}
	expected, seen := s.revisions[name]

	var rev uint64
	switch {
	case !seen:
		rev, err = s.bucket.kv.Put(ctx, key, value)
	case expected == 0:
		rev, err = s.bucket.kv.Create(ctx, key, value)
	default:
		rev, err = s.bucket.kv.Update(ctx, key, value, expected)
	}
	if isWrongRevision(err) {
		return 0, fmt.Errorf("write %s at revision %d: %w", key, expected, store.ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	return rev, nil
}

func isWrongRevision(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

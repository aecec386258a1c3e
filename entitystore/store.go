// Package entitystore is the collection-oriented persistence and query layer
// every domain service is built on.
//
// A Store keeps named collections of Records in a Backend. Each collection is
// guarded by its own lock: writes are serialized read-modify-write cycles, so
// ids and count-derived sequence numbers handed out by concurrent creates never
// collide. Queries always scan the live collection; there is no cache or index.
package entitystore

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/pkg/errors"
)

var (
	collectionRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

	ErrInvalidCollection = errors.New("invalid collection name")
)

// Backend is the durable medium behind a Store.
//
// Read returns the records of a collection in insertion order, or an empty
// slice when the collection was never written. The returned slice belongs to
// the caller. Write replaces the whole collection and must not retain `records`.
type Backend interface {
	Read(ctx context.Context, collection string) ([]Record, error)
	Write(ctx context.Context, collection string, records []Record) error
	Collections(ctx context.Context) ([]string, error)
	Close() error
}

type Option func(*Store)

// WithIDGenerator overrides the default SequenceIDs.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) { s.ids = gen }
}

type Store struct {
	backend Backend
	ids     IDGenerator

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		ids:     SequenceIDs{},
		locks:   make(map[string]*sync.RWMutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) lock(collection string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[collection]
	if !ok {
		l = new(sync.RWMutex)
		s.locks[collection] = l
	}
	return l
}

func checkCollection(collection string) error {
	if !collectionRegex.MatchString(collection) {
		return errors.Wrapf(ErrInvalidCollection, "%q", collection)
	}
	return nil
}

// load reads a collection. Must be called with the collection lock held.
func (s *Store) load(ctx context.Context, collection string) ([]Record, error) {
	records, err := s.backend.Read(ctx, collection)
	if err != nil {
		return nil, persistenceErr(collection, "read", err)
	}
	for i, r := range records {
		if r == nil || r.ID() == "" {
			return nil, persistenceErr(collection, "read", fmt.Errorf("record #%d has no string id", i))
		}
	}
	return records, nil
}

func (s *Store) save(ctx context.Context, collection string, records []Record) error {
	return persistenceErr(collection, "write", s.backend.Write(ctx, collection, records))
}

func indexOf(records []Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

// GetAll returns every record of the collection in insertion order.
// An unknown collection yields an empty list.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Record, error) {
	return s.Query(ctx, collection, nil)
}

// GetByID returns the record with the given id or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, collection, id string) (Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	l := s.lock(collection)
	l.RLock()
	defer l.RUnlock()

	records, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	if i := indexOf(records, id); i >= 0 {
		return records[i], nil
	}
	return nil, errors.Wrapf(ErrNotFound, "%s/%s", collection, id)
}

// Create stores a new record. A missing or empty id is generated; a
// supplied id must not exist yet (ErrDuplicateID).
func (s *Store) Create(ctx context.Context, collection string, partial Record) (Record, error) {
	return s.CreateWithSeq(ctx, collection, func(int, []Record) (Record, error) { return partial, nil })
}

// CreateWithSeq builds the record from seq, the collection count + 1, and stores it
// under the same lock, so that numbers derived from seq are unique among concurrent creates.
// existing is the collection snapshot seq was computed from; build must not modify it
// and must not call back into the Store for the same collection.
func (s *Store) CreateWithSeq(ctx context.Context, collection string, build func(seq int, existing []Record) (Record, error)) (Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	l := s.lock(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}

	partial, err := build(len(records)+1, records)
	if err != nil {
		return nil, err
	}
	rec, err := Normalize(partial)
	if err != nil {
		return nil, err
	}

	switch id := rec[IDField].(type) {
	case nil:
		rec[IDField] = s.ids.NextID(collection, records)
	case string:
		if id == "" {
			rec[IDField] = s.ids.NextID(collection, records)
		}
	default:
		return nil, errors.Errorf("%s: id must be a string, got %T", collection, id)
	}
	if indexOf(records, rec.ID()) >= 0 {
		return nil, errors.Wrapf(ErrDuplicateID, "%s/%s", collection, rec.ID())
	}

	if err := s.save(ctx, collection, append(records, rec)); err != nil {
		return nil, err
	}
	return rec, nil
}

// Guard runs fn with the collection write-locked and loaded, so no write to it can
// interleave with fn. Writes fn makes to other collections are not undone when fn fails.
// fn must not call back into the Store for the same collection; when it reaches into
// other collections, callers must always lock them in the same order.
func (s *Store) Guard(ctx context.Context, collection string, fn func(records []Record) error) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	l := s.lock(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(ctx, collection)
	if err != nil {
		return err
	}
	return fn(records)
}

// Update shallow-merges fields into the record with the given id.
// The id itself is never changed, even if fields carries one.
func (s *Store) Update(ctx context.Context, collection, id string, fields Record) (Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	patch, err := Normalize(fields)
	if err != nil {
		return nil, err
	}

	l := s.lock(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, errors.Wrapf(ErrNotFound, "%s/%s", collection, id)
	}
	records[i].Merge(patch)

	if err := s.save(ctx, collection, records); err != nil {
		return nil, err
	}
	return records[i], nil
}

// Delete removes the record with the given id. A missing id is always ErrNotFound.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	l := s.lock(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(ctx, collection)
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return errors.Wrapf(ErrNotFound, "%s/%s", collection, id)
	}
	records = append(records[:i], records[i+1:]...)
	return s.save(ctx, collection, records)
}

// Query returns the records matching pred (all records when pred is nil), in insertion order.
func (s *Store) Query(ctx context.Context, collection string, pred Predicate) ([]Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	l := s.lock(collection)
	l.RLock()
	defer l.RUnlock()

	records, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	matches := make([]Record, 0, len(records))
	for _, r := range records {
		if pred == nil || pred(r) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

// FindOne returns the first record matching pred. No match is not an error: found is false.
func (s *Store) FindOne(ctx context.Context, collection string, pred Predicate) (rec Record, found bool, err error) {
	if err := checkCollection(collection); err != nil {
		return nil, false, err
	}
	l := s.lock(collection)
	l.RLock()
	defer l.RUnlock()

	records, err := s.load(ctx, collection)
	if err != nil {
		return nil, false, err
	}
	for _, r := range records {
		if pred == nil || pred(r) {
			return r, true, nil
		}
	}
	return nil, false, nil
}

// Count returns the number of records matching pred (all when pred is nil).
func (s *Store) Count(ctx context.Context, collection string, pred Predicate) (int, error) {
	if pred == nil {
		if err := checkCollection(collection); err != nil {
			return 0, err
		}
		l := s.lock(collection)
		l.RLock()
		defer l.RUnlock()

		records, err := s.load(ctx, collection)
		if err != nil {
			return 0, err
		}
		return len(records), nil
	}

	matches, err := s.Query(ctx, collection, pred)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// Collections lists the collections the backend holds data for.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	names, err := s.backend.Collections(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing collections")
	}
	return names, nil
}

// Replace overwrites a whole collection. Used by the admin copy/seed tooling;
// every record must carry a unique string id.
func (s *Store) Replace(ctx context.Context, collection string, records []Record) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(records))
	normalized := make([]Record, 0, len(records))
	for _, r := range records {
		n, err := Normalize(r)
		if err != nil {
			return err
		}
		id := n.ID()
		if id == "" {
			return errors.Errorf("%s: record without id", collection)
		}
		if _, dup := seen[id]; dup {
			return errors.Wrapf(ErrDuplicateID, "%s/%s", collection, id)
		}
		seen[id] = struct{}{}
		normalized = append(normalized, n)
	}

	l := s.lock(collection)
	l.Lock()
	defer l.Unlock()
	return s.save(ctx, collection, normalized)
}

func (s *Store) Close() error {
	return s.backend.Close()
}

package entitystore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Collection is a typed view over one collection of a Store.
// T is converted to and from a Record through its JSON encoding, so T must
// carry the id as `json:"id,omitempty"` for ids to be generated on create.
type Collection[T any] struct {
	store *Store
	name  string
}

func NewCollection[T any](store *Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

func (c *Collection[T]) Name() string  { return c.name }
func (c *Collection[T]) Store() *Store { return c.store }

// ToRecord converts any JSON-encodable value to a Record.
func ToRecord(v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding record")
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrap(err, "decoding record")
	}
	return r, nil
}

func (c *Collection[T]) decode(r Record) (T, error) {
	var v T
	b, err := json.Marshal(r)
	if err != nil {
		return v, errors.Wrapf(err, "encoding %s record", c.name)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, persistenceErr(c.name, "decode", err)
	}
	return v, nil
}

func (c *Collection[T]) decodeAll(records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		v, err := c.decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	records, err := c.store.GetAll(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(records)
}

func (c *Collection[T]) GetByID(ctx context.Context, id string) (T, error) {
	r, err := c.store.GetByID(ctx, c.name, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.decode(r)
}

func (c *Collection[T]) Create(ctx context.Context, v T) (T, error) {
	return c.CreateWithSeq(ctx, func(int, []T) (T, error) { return v, nil })
}

// CreateWithSeq see Store.CreateWithSeq; existing is the decoded snapshot.
func (c *Collection[T]) CreateWithSeq(ctx context.Context, build func(seq int, existing []T) (T, error)) (T, error) {
	r, err := c.store.CreateWithSeq(ctx, c.name, func(seq int, records []Record) (Record, error) {
		existing, err := c.decodeAll(records)
		if err != nil {
			return nil, err
		}
		v, err := build(seq, existing)
		if err != nil {
			return nil, err
		}
		return ToRecord(v)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return c.decode(r)
}

// Guard see Store.Guard; fn gets the decoded collection.
func (c *Collection[T]) Guard(ctx context.Context, fn func(existing []T) error) error {
	return c.store.Guard(ctx, c.name, func(records []Record) error {
		existing, err := c.decodeAll(records)
		if err != nil {
			return err
		}
		return fn(existing)
	})
}

// Update merges fields into the stored record; see Store.Update.
func (c *Collection[T]) Update(ctx context.Context, id string, fields Record) (T, error) {
	r, err := c.store.Update(ctx, c.name, id, fields)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.decode(r)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// Query returns the values matching pred (all when nil), in insertion order.
func (c *Collection[T]) Query(ctx context.Context, pred func(T) bool) ([]T, error) {
	all, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return all, nil
	}
	matches := make([]T, 0, len(all))
	for _, v := range all {
		if pred(v) {
			matches = append(matches, v)
		}
	}
	return matches, nil
}

func (c *Collection[T]) FindOne(ctx context.Context, pred func(T) bool) (T, bool, error) {
	var zero T
	all, err := c.GetAll(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, v := range all {
		if pred == nil || pred(v) {
			return v, true, nil
		}
	}
	return zero, false, nil
}

func (c *Collection[T]) Count(ctx context.Context, pred func(T) bool) (int, error) {
	if pred == nil {
		return c.store.Count(ctx, c.name, nil)
	}
	matches, err := c.Query(ctx, pred)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

package entitystore

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// IDField is the only field the store knows about.
const IDField = "id"

// Record is one entity: an arbitrary JSON object with a string "id".
type Record map[string]any

// Predicate selects records for Query, FindOne and Count.
type Predicate func(Record) bool

// ID returns the record id, or "" when absent or not a string.
func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// String returns the string field `key`, or "".
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Float returns the numeric field `key`, or 0.
func (r Record) Float(key string) float64 {
	switch n := r[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

// Normalize deep-copies r through JSON so that the result only holds
// string, float64, bool, nil, []any and map[string]any values.
func Normalize(r Record) (Record, error) {
	if r == nil {
		return Record{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "encoding record")
	}
	var out Record
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrap(err, "decoding record")
	}
	return out, nil
}

// Merge copies every field of fields into r except the id.
func (r Record) Merge(fields Record) {
	for k, v := range fields {
		if k == IDField {
			continue
		}
		r[k] = v
	}
}

// Where matches records whose field `key` equals `value`.
// Numbers are compared after normalization, so Where("total", 500) matches 500.0.
func Where(key string, value any) Predicate {
	switch v := value.(type) {
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case float32:
		value = float64(v)
	}
	return func(r Record) bool {
		return r[key] == value
	}
}

// And matches records satisfying every predicate.
func And(preds ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}

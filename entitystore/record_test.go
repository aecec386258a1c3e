package entitystore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/entitystore"
)

func TestNormalize(t *testing.T) {
	type line struct {
		Amount int `json:"amount"`
	}
	rec, err := entitystore.Normalize(entitystore.Record{
		"id":    "1",
		"n":     3,
		"lines": []line{{Amount: 2}},
		"nil":   nil,
	})
	require.NoError(t, err)
	assert.Equal(t, entitystore.Record{
		"id":    "1",
		"n":     3.0,
		"lines": []any{map[string]any{"amount": 2.0}},
		"nil":   nil,
	}, rec)

	empty, err := entitystore.Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, entitystore.Record{}, empty)

	_, err = entitystore.Normalize(entitystore.Record{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestRecord_accessors(t *testing.T) {
	rec := entitystore.Record{"id": "7", "name": "Ama", "total": 12.5, "count": 3}
	assert.Equal(t, "7", rec.ID())
	assert.Equal(t, "Ama", rec.String("name"))
	assert.Equal(t, "", rec.String("total"))
	assert.Equal(t, 12.5, rec.Float("total"))
	assert.Equal(t, 3.0, rec.Float("count"))
	assert.Equal(t, 0.0, rec.Float("name"))
	assert.Equal(t, "", entitystore.Record{"id": 7}.ID())

	rec.Merge(entitystore.Record{"id": "8", "name": "Kofi"})
	assert.Equal(t, "7", rec.ID())
	assert.Equal(t, "Kofi", rec.String("name"))
}

func TestWhereAnd(t *testing.T) {
	rec, err := entitystore.Normalize(entitystore.Record{"id": "1", "total": 500, "status": "pending"})
	require.NoError(t, err)

	tests := []struct {
		name string
		pred entitystore.Predicate
		want bool
	}{
		{name: "int matches float", pred: entitystore.Where("total", 500), want: true},
		{name: "string", pred: entitystore.Where("status", "pending"), want: true},
		{name: "mismatch", pred: entitystore.Where("status", "paid"), want: false},
		{name: "missing field", pred: entitystore.Where("nope", "x"), want: false},
		{name: "and", pred: entitystore.And(entitystore.Where("total", 500), entitystore.Where("status", "pending")), want: true},
		{name: "and (one fails)", pred: entitystore.And(entitystore.Where("total", 500), entitystore.Where("status", "paid")), want: false},
		{name: "and (nil ignored)", pred: entitystore.And(nil, entitystore.Where("id", "1")), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred(rec))
		})
	}
}

func TestSequenceIDs(t *testing.T) {
	gen := entitystore.SequenceIDs{}
	records := func(ids ...string) []entitystore.Record {
		out := make([]entitystore.Record, 0, len(ids))
		for _, id := range ids {
			out = append(out, entitystore.Record{"id": id})
		}
		return out
	}

	tests := []struct {
		name     string
		existing []entitystore.Record
		want     string
	}{
		{name: "empty", want: "1"},
		{name: "dense", existing: records("1", "2", "3"), want: "4"},
		{name: "gap after delete", existing: records("1", "3"), want: "4"},
		{name: "non numeric ids", existing: records("a", "b"), want: "3"},
		{name: "mixed", existing: records("a", "9"), want: "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gen.NextID("students", tt.existing))
		})
	}

	assert.IsType(t, entitystore.UUIDs{}, entitystore.NewIDGenerator("uuid"))
	assert.IsType(t, entitystore.SequenceIDs{}, entitystore.NewIDGenerator("sequence"))
	assert.IsType(t, entitystore.SequenceIDs{}, entitystore.NewIDGenerator(""))
}

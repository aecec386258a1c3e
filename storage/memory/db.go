// Package memorydb is an ephemeral entitystore.Backend used by tests and the TEST env.
package memorydb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/shule/entitystore"
)

type DB struct {
	sync.RWMutex
	tables map[string][]entitystore.Record
}

var _ entitystore.Backend = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{tables: make(map[string][]entitystore.Record)}
}

func copyRecords(records []entitystore.Record) ([]entitystore.Record, error) {
	out := make([]entitystore.Record, 0, len(records))
	for _, r := range records {
		c, err := entitystore.Normalize(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (db *DB) Read(_ context.Context, collection string) ([]entitystore.Record, error) {
	db.RLock()
	defer db.RUnlock()
	return copyRecords(db.tables[collection])
}

func (db *DB) Write(_ context.Context, collection string, records []entitystore.Record) error {
	stored, err := copyRecords(records)
	if err != nil {
		return err
	}
	db.Lock()
	defer db.Unlock()
	db.tables[collection] = stored
	return nil
}

func (db *DB) Collections(context.Context) ([]string, error) {
	db.RLock()
	defer db.RUnlock()
	names := make([]string, 0, len(db.tables))
	for name, records := range db.tables {
		if len(records) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (db *DB) Close() error { return nil }

// Package jsondb stores each collection as one JSON array file:
//
//	data_dir/
//	  students.json
//	  bills.json
package jsondb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/entitystore"
)

type DB struct {
	dir string
}

var _ entitystore.Backend = (*DB)(nil) // interface compliance check

func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating data dir %s", dir)
	}
	return &DB{dir: dir}, nil
}

func (db *DB) path(collection string) string {
	return filepath.Join(db.dir, collection+".json")
}

func (db *DB) Read(_ context.Context, collection string) ([]entitystore.Record, error) {
	data, err := os.ReadFile(db.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return []entitystore.Record{}, nil
		}
		return nil, err
	}
	var records []entitystore.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "corrupt %s", db.path(collection))
	}
	if records == nil {
		records = []entitystore.Record{}
	}
	return records, nil
}

func (db *DB) Write(_ context.Context, collection string, records []entitystore.Record) error {
	if records == nil {
		records = []entitystore.Record{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding collection")
	}
	return writeFileAtomic(db.path(collection), b, 0o644)
}

func (db *DB) Collections(context.Context) ([]string, error) {
	entries, err := os.ReadDir(db.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, tempFilePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (db *DB) Close() error { return nil }

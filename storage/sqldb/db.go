// Package sqldb keeps collections in a SQL table, one row per collection:
//
//	collections(name PRIMARY KEY, data) -- data is the JSON array of records
//
// It is shared by the sqlite and postgres backends; queries are written with
// `?` placeholders and rebound for the driver by sqlx.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/entitystore"
)

type DB struct {
	db *sqlx.DB
}

var _ entitystore.Backend = (*DB)(nil) // interface compliance check

func New(db *sqlx.DB) *DB {
	return &DB{db: db}
}

// SQL exposes the underlying handle (migrations, admin tooling).
func (d *DB) SQL() *sqlx.DB { return d.db }

func (d *DB) Read(ctx context.Context, collection string) ([]entitystore.Record, error) {
	var data string
	q := d.db.Rebind("SELECT data FROM collections WHERE name = ?")
	if err := d.db.GetContext(ctx, &data, q, collection); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []entitystore.Record{}, nil
		}
		return nil, errors.Wrap(err, "selecting collection")
	}
	var records []entitystore.Record
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, errors.Wrap(err, "corrupt collection data")
	}
	if records == nil {
		records = []entitystore.Record{}
	}
	return records, nil
}

func (d *DB) Write(ctx context.Context, collection string, records []entitystore.Record) error {
	if records == nil {
		records = []entitystore.Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "encoding collection")
	}
	q := d.db.Rebind(`INSERT INTO collections (name, data) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET data = excluded.data`)
	if _, err := d.db.ExecContext(ctx, q, collection, string(b)); err != nil {
		return errors.Wrap(err, "upserting collection")
	}
	return nil
}

func (d *DB) Collections(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	if err := d.db.SelectContext(ctx, &names, "SELECT name FROM collections ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "listing collections")
	}
	return names, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Package redisdb keeps each collection as one JSON string under "<prefix>:<collection>",
// with the set "<prefix>:collections" listing the names.
package redisdb

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/entitystore"
)

const defaultPrefix = "shule"

type DB struct {
	client *redis.Client
	prefix string
}

var _ entitystore.Backend = (*DB)(nil) // interface compliance check

// Open connects to addr and checks the connection.
func Open(ctx context.Context, addr string, prefix ...string) (*DB, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", addr)
	}
	db := &DB{client: client, prefix: defaultPrefix}
	if len(prefix) > 0 && prefix[0] != "" {
		db.prefix = prefix[0]
	}
	return db, nil
}

func (db *DB) key(collection string) string { return db.prefix + ":" + collection }
func (db *DB) indexKey() string             { return db.prefix + ":collections" }

func (db *DB) Read(ctx context.Context, collection string) ([]entitystore.Record, error) {
	data, err := db.client.Get(ctx, db.key(collection)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []entitystore.Record{}, nil
		}
		return nil, errors.Wrap(err, "getting collection")
	}
	var records []entitystore.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "corrupt collection data")
	}
	if records == nil {
		records = []entitystore.Record{}
	}
	return records, nil
}

func (db *DB) Write(ctx context.Context, collection string, records []entitystore.Record) error {
	if records == nil {
		records = []entitystore.Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "encoding collection")
	}
	_, err = db.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, db.key(collection), b, 0)
		pipe.SAdd(ctx, db.indexKey(), collection)
		return nil
	})
	return errors.Wrap(err, "setting collection")
}

func (db *DB) Collections(ctx context.Context) ([]string, error) {
	names, err := db.client.SMembers(ctx, db.indexKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "listing collections")
	}
	sort.Strings(names)
	return names, nil
}

func (db *DB) Close() error {
	return db.client.Close()
}

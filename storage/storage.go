// Package storage picks the entitystore.Backend named in the configuration.
//
// Supported backends:
//
//	"json"     - one JSON file per collection in DataDir (default)
//	"sqlite"   - SQLite database at DataDir/shule.db
//	"postgres" - PostgreSQL at DSN, migrated on open
//	"redis"    - Redis at RedisAddr
//	"memory"   - in-memory (ephemeral, for testing)
package storage

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/entitystore"
	jsondb "github.com/trezcool/shule/storage/jsonfile"
	memorydb "github.com/trezcool/shule/storage/memory"
	pgdb "github.com/trezcool/shule/storage/postgres"
	redisdb "github.com/trezcool/shule/storage/redis"
	sqlitedb "github.com/trezcool/shule/storage/sqlite"
)

var Backends = []string{"json", "sqlite", "postgres", "redis", "memory"}

func Open(ctx context.Context, conf core.StorageConfig) (entitystore.Backend, error) {
	switch conf.Backend {
	case "json", "":
		return jsondb.Open(conf.DataDir)
	case "sqlite":
		return sqlitedb.Open(filepath.Join(conf.DataDir, "shule.db"))
	case "postgres":
		if conf.DSN == "" {
			return nil, errors.New("postgres backend requires storage.dsn")
		}
		return pgdb.Open(conf.DSN)
	case "redis":
		return redisdb.Open(ctx, conf.RedisAddr)
	case "memory":
		return memorydb.Open(), nil
	default:
		return nil, errors.Errorf("unknown store backend: %q (supported: json, sqlite, postgres, redis, memory)", conf.Backend)
	}
}

// NewStore opens the configured backend and wraps it in an entitystore.Store.
func NewStore(ctx context.Context, conf core.StorageConfig, wrap ...func(entitystore.Backend) entitystore.Backend) (*entitystore.Store, error) {
	backend, err := Open(ctx, conf)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s backend", conf.Backend)
	}
	for _, w := range wrap {
		backend = w(backend)
	}
	return entitystore.New(backend, entitystore.WithIDGenerator(entitystore.NewIDGenerator(conf.IDs))), nil
}

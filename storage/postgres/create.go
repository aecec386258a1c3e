package pgdb

import (
	"database/sql"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// CreateIfNotExist creates the database named in dsn, connecting to the
// maintenance "postgres" database with the same credentials.
func CreateIfNotExist(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return errors.New("CreateIfNotExist requires a postgres:// URL dsn")
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return errors.New("dsn has no database name")
	}

	admin := *u
	admin.Path = "/postgres"
	db, err := sql.Open("postgres", admin.String())
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	// check if DB exists
	var exists bool
	if err = db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking database")
	}
	if exists {
		return nil
	}
	if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(name)); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

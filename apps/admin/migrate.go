package main

import (
	"github.com/pkg/errors"

	pgdb "github.com/trezcool/shule/storage/postgres"
)

var (
	// mockable
	migrateFunc  = pgdb.Migrate
	createDBFunc = pgdb.CreateIfNotExist
	openPGFunc   = pgdb.Open
)

var errPostgresOnly = errors.New("this command needs storage.backend=postgres")

func (cli *commandLine) createDB() error {
	if cli.conf.Storage.Backend != "postgres" {
		return errPostgresOnly
	}
	return createDBFunc(cli.conf.Storage.DSN)
}

// migrate runs goose against the configured postgres database.
// Opening the database already applies pending migrations, so `up` is a no-op
// there; down, redo, status, version... are the useful commands.
func (cli *commandLine) migrate(args []string) error {
	if cli.conf.Storage.Backend != "postgres" {
		return errPostgresOnly
	}
	db, err := openPGFunc(cli.conf.Storage.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return migrateFunc(db.SQL().DB, args[0], args[1:]...)
}

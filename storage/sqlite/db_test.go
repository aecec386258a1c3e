package sqlitedb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/entitystore"
	"github.com/trezcool/shule/storage/storagetest"
)

func TestDB(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "shule.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	storagetest.Run(t, db)
}

func TestDB_corruptRow(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "shule.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.SQL().Exec("INSERT INTO collections (name, data) VALUES ('bills', 'not json')")
	require.NoError(t, err)

	_, err = entitystore.New(db).GetAll(ctx, "bills")
	assert.True(t, entitystore.IsPersistence(err))
}

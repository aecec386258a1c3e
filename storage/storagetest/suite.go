// Package storagetest checks that an entitystore.Backend honours the contract the Store relies on.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/entitystore"
)

// Run exercises a fresh, empty backend. It does not close it.
func Run(t *testing.T, backend entitystore.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("unknown collection is empty", func(t *testing.T) {
		records, err := backend.Read(ctx, "never_written")
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("write then read keeps order and values", func(t *testing.T) {
		in := []entitystore.Record{
			{"id": "2", "firstName": "Kofi", "total": 12.5, "tags": []any{"a", "b"}},
			{"id": "1", "firstName": "Ama", "guardian": map[string]any{"email": "a@b.c"}, "dueDate": nil, "active": true},
		}
		require.NoError(t, backend.Write(ctx, "students", in))

		out, err := backend.Read(ctx, "students")
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("write replaces the collection", func(t *testing.T) {
		require.NoError(t, backend.Write(ctx, "bills", []entitystore.Record{{"id": "1"}, {"id": "2"}}))
		require.NoError(t, backend.Write(ctx, "bills", []entitystore.Record{{"id": "2"}}))

		out, err := backend.Read(ctx, "bills")
		require.NoError(t, err)
		assert.Equal(t, []entitystore.Record{{"id": "2"}}, out)
	})

	t.Run("read result is owned by the caller", func(t *testing.T) {
		out, err := backend.Read(ctx, "bills")
		require.NoError(t, err)
		out[0]["id"] = "changed"

		again, err := backend.Read(ctx, "bills")
		require.NoError(t, err)
		assert.Equal(t, "2", again[0].ID())
	})

	t.Run("collections", func(t *testing.T) {
		names, err := backend.Collections(ctx)
		require.NoError(t, err)
		assert.Subset(t, names, []string{"bills", "students"})
		assert.NotContains(t, names, "never_written")
	})

	t.Run("store on top", func(t *testing.T) {
		store := entitystore.New(backend)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.Create(ctx, "payments", entitystore.Record{"amount": float64(i)})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		n, err := store.Count(ctx, "payments", nil)
		require.NoError(t, err)
		assert.Equal(t, 10, n)

		rec, err := store.Update(ctx, "payments", "3", entitystore.Record{"method": "cash"})
		require.NoError(t, err)
		assert.Equal(t, "cash", rec["method"])

		require.NoError(t, store.Delete(ctx, "payments", "3"))
		_, err = store.GetByID(ctx, "payments", "3")
		assert.True(t, entitystore.IsNotFound(err), fmt.Sprintf("unexpected error: %v", err))
	})
}

package redisdb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/storage/storagetest"
)

func TestDB(t *testing.T) {
	addr := os.Getenv("SHULE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SHULE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := fmt.Sprintf("shule-test-%d", time.Now().UnixNano())

	db, err := Open(ctx, addr, prefix)
	require.NoError(t, err)
	t.Cleanup(func() {
		keys, _ := db.client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			_ = db.client.Del(ctx, keys...).Err()
		}
		_ = db.Close()
	})

	storagetest.Run(t, db)
}

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis requires Redis on REDIS_ADDR (default localhost:6379) and skips otherwise.
func setupTestRedis(t *testing.T, prefix string) *RedisStore {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	store := NewRedisStoreFromClient(client, prefix, time.Minute)
	t.Cleanup(func() {
		_ = store.DeletePrefix(context.Background(), "")
		store.Close()
	})
	return store
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	store := setupTestRedis(t, "barakaflow-test:")

	var got payload
	found, err := store.Get(ctx, "suggest:u1:t1:x", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "suggest:u1:t1:x", payload{Tips: []string{"a"}}, 0))
	require.NoError(t, store.Set(ctx, "suggest:u1:t2:x", payload{Tips: []string{"b"}}, time.Second))

	found, err = store.Get(ctx, "suggest:u1:t1:x", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a"}, got.Tips)

	require.NoError(t, store.DeletePrefix(ctx, "suggest:u1:t1:"))
	found, err = store.Get(ctx, "suggest:u1:t1:x", &got)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = store.Get(ctx, "suggest:u1:t2:x", &got)
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, uint64(2), store.Stats().Hits)
	assert.NoError(t, store.Ping(ctx))
}

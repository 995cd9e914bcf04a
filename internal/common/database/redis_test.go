// internal/common/database/redis_test.go
package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &RedisClient{Client: client}, srv
}

func TestRedisClient_SetNXHoldsLock(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	acquired, err := rc.SetNX(ctx, "royalty:calc:franchise-001:2024-01", "calc-001", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	// Second attempt on the same key must report the key as held.
	acquired, err = rc.SetNX(ctx, "royalty:calc:franchise-001:2024-01", "calc-002", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	value, err := rc.Get(ctx, "royalty:calc:franchise-001:2024-01")
	require.NoError(t, err)
	assert.Equal(t, "calc-001", value)
}

func TestRedisClient_SetNXExpires(t *testing.T) {
	rc, srv := newTestRedis(t)
	ctx := context.Background()

	acquired, err := rc.SetNX(ctx, "royalty:calc:franchise-002:2024-01", "calc-003", time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	srv.FastForward(2 * time.Second)

	acquired, err = rc.SetNX(ctx, "royalty:calc:franchise-002:2024-01", "calc-004", time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestRedisClient_DelReleasesKey(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "royalty:calc:franchise-003:2024-01", "calc-005", time.Minute))
	require.NoError(t, rc.Del(ctx, "royalty:calc:franchise-003:2024-01"))

	_, err := rc.Get(ctx, "royalty:calc:franchise-003:2024-01")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRedisClient_Ping(t *testing.T) {
	rc, srv := newTestRedis(t)
	require.NoError(t, rc.Ping(context.Background()))

	srv.Close()
	assert.Error(t, rc.Ping(context.Background()))
}

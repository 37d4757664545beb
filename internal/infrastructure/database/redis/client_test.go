package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DockFlow/internal/config"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/pkg/errors"
)

func newMiniClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewClient_Success(t *testing.T) {
	_, client := newMiniClient(t)

	assert.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, config.DefaultRedisKeyPrefix, client.KeyPrefix())
	assert.Equal(t, config.DefaultLockTTL, client.LockTTL())
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, logging.NewNopLogger())
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestClient_Operations(t *testing.T) {
	_, client := newMiniClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "foo", "bar", 0).Err())
	val, err := client.Get(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, "bar", val)

	ok, err := client.SetNX(ctx, "foo", "baz", time.Minute).Result()
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := client.Del(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	exists, err := client.Exists(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

func TestClient_Close(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close(), "second close is a no-op")

	assert.Equal(t, ErrClientClosed, client.Get(context.Background(), "foo").Err())
	assert.Equal(t, ErrClientClosed, client.Ping(context.Background()))
	assert.Equal(t, ErrClientClosed, client.SetNX(context.Background(), "k", "v", time.Second).Err())
}

//Personal.AI order the ending

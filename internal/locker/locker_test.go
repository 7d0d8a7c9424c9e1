package locker

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/loobook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLockerWithoutClient(t *testing.T) {
	l := NewLocker(nil)
	assert.Nil(t, l)

	_, ok, err := l.TryLock(context.Background(), "k", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, l.Release(context.Background(), "k", "token"))
}

func TestTryLockValidatesBeforeCallingRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	l := NewLocker(client)
	require.NotNil(t, l)

	_, _, err := l.TryLock(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, _, err = l.TryLock(context.Background(), "loobook:reports:bulk:2024-03", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	assert.NoError(t, l.Release(context.Background(), "loobook:reports:bulk:2024-03", ""))
}

func TestNewRedisClientDisabled(t *testing.T) {
	client := NewRedisClient(nil, config.Config{}, zap.NewNop())
	assert.Nil(t, client)
}

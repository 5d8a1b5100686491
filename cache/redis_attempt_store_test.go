package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliefhub-api/config"
	"reliefhub-api/services"
)

func newTestStore(t *testing.T) (*RedisAttemptStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisAttemptStore(client, "test"), mr
}

func TestRedisAttemptStore_CountsWithinWindow(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 1; i <= 3; i++ {
		count, err := store.AddFailure(ctx, "a@example.com", now.Add(time.Duration(i)*time.Second), 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}
	assert.True(t, mr.Exists("test:login:attempts:a@example.com"))
	assert.Equal(t, 15*time.Minute, mr.TTL("test:login:attempts:a@example.com"))

	count, err := store.AddFailure(ctx, "a@example.com", now.Add(16*time.Minute), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.AddFailure(ctx, "b@example.com", now, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRedisAttemptStore_LockExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddFailure(ctx, "a@example.com", time.Now(), 15*time.Minute)
	require.NoError(t, err)

	until := time.Now().Add(30 * time.Minute)
	require.NoError(t, store.Lock(ctx, "a@example.com", until))
	assert.False(t, mr.Exists("test:login:attempts:a@example.com"))

	got, locked, err := store.LockedUntil(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, until.UnixNano(), got.UnixNano())

	mr.FastForward(31 * time.Minute)
	_, locked, err = store.LockedUntil(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestRedisAttemptStore_Clear(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddFailure(ctx, "a@example.com", time.Now(), 15*time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Lock(ctx, "b@example.com", time.Now().Add(time.Hour)))

	require.NoError(t, store.Clear(ctx, "a@example.com"))
	require.NoError(t, store.Clear(ctx, "b@example.com"))
	assert.Empty(t, mr.Keys())

	removed, err := store.Sweep(ctx, time.Now(), 15*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRedisAttemptStore_BacksLoginTracker(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	tracker := services.NewLoginAttemptTracker(store, services.DefaultLoginPolicy)

	for i := 0; i < 4; i++ {
		res, err := tracker.RecordFailure(ctx, "a@example.com")
		require.NoError(t, err)
		assert.False(t, res.Locked)
	}
	res, err := tracker.RecordFailure(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, res.Locked)

	status, err := tracker.CheckLock(ctx, "A@example.com")
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, 30, status.RemainingMinutes)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewClient(context.Background(), config.RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	_, err = NewClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}

package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisAttemptStore keeps failed logins in redis so every API instance sees
// the same lockouts. Attempts live in a sorted set scored by time; a lock is
// a key holding the unlock time that expires with it.
type RedisAttemptStore struct {
	client *redis.Client
	prefix string
}

func NewRedisAttemptStore(client *redis.Client, prefix string) *RedisAttemptStore {
	if prefix == "" {
		prefix = "reliefhub"
	}
	return &RedisAttemptStore{client: client, prefix: prefix}
}

func (s *RedisAttemptStore) attemptsKey(id string) string {
	return s.prefix + ":login:attempts:" + id
}

func (s *RedisAttemptStore) lockKey(id string) string {
	return s.prefix + ":login:lock:" + id
}

func (s *RedisAttemptStore) AddFailure(ctx context.Context, id string, now time.Time, window time.Duration) (int, error) {
	key := s.attemptsKey(id)
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	var card *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(now.UnixNano()),
			Member: uuid.New().String(),
		})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "record login failure")
	}
	return int(card.Val()), nil
}

func (s *RedisAttemptStore) Lock(ctx context.Context, id string, until time.Time) error {
	ttl := time.Until(until)
	if ttl < time.Second {
		ttl = time.Second
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.lockKey(id), strconv.FormatInt(until.UnixNano(), 10), ttl)
		pipe.Del(ctx, s.attemptsKey(id))
		return nil
	})
	return errors.Wrap(err, "lock login identifier")
}

func (s *RedisAttemptStore) LockedUntil(ctx context.Context, id string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.lockKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "read login lock")
	}

	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "parse login lock")
	}
	return time.Unix(0, nanos), true, nil
}

func (s *RedisAttemptStore) Clear(ctx context.Context, id string) error {
	return errors.Wrap(s.client.Del(ctx, s.attemptsKey(id), s.lockKey(id)).Err(), "clear login attempts")
}

// Sweep is a no-op: attempt sets and locks carry their own TTLs.
func (s *RedisAttemptStore) Sweep(context.Context, time.Time, time.Duration) (int, error) {
	return 0, nil
}

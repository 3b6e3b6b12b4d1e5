package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/timetable"
)

const generationKey = "timetable:generation"

// RedisCache stores rendered timetables in Redis. Entries expire after ttl; all of them become
// unreachable as soon as the generation is bumped by DataChanged.
type RedisCache struct {
	Client *redis.Client
	ttl    time.Duration
	logger core.Logger
}

var (
	_ timetable.Cache     = (*RedisCache)(nil)
	_ core.ChangeListener = (*RedisCache)(nil)
)

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRedisCache(client *redis.Client, logger core.Logger, conf *core.Config) *RedisCache {
	return &RedisCache{Client: client, ttl: conf.Redis.TTL, logger: logger}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "pinging redis")
	}
	return nil
}

func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.Client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "getting cache generation")
	}
	return gen, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "getting %s from redis", key)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte) error {
	if err := c.Client.Set(ctx, key, val, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "setting %s in redis", key)
	}
	return nil
}

// Invalidate bumps the generation so that existing entries are never read again.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.Client.Incr(ctx, generationKey).Err(); err != nil {
		return errors.Wrap(err, "bumping cache generation")
	}
	return nil
}

func (c *RedisCache) DataChanged(ctx context.Context) {
	if err := c.Invalidate(ctx); err != nil {
		c.logger.Error(err.Error(), err)
	}
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

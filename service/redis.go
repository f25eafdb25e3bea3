package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Tilak559/solar/config"
	"github.com/Tilak559/solar/model"
	"github.com/Tilak559/solar/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "solar:"

// RedisCache shares estimates between instances. Entries expire after ttl;
// a zero ttl keeps them forever.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg *config.RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (*model.Estimate, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var est model.Estimate
	if err := json.Unmarshal(data, &est); err != nil {
		utils.Logger.Error("failed to unmarshal cached estimate",
			zap.String("key", key), zap.Error(err))
		return nil, false, err
	}
	return &est, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, est *model.Estimate) error {
	data, err := json.Marshal(est)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

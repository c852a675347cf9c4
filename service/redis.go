package service

import (
	"context"
	"errors"
	"time"

	"github.com/chaos-io/cutout/config"
	"github.com/redis/go-redis/v9"
)

const cachePrefix = "cutout:"

// RedisCache 以 Redis 缓存输出 PNG
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

func (s *RedisCache) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get 从缓存获取结果，未命中返回 nil
func (s *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, cachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set 写入缓存
func (s *RedisCache) Set(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, cachePrefix+key, data, s.ttl).Err()
}

func (s *RedisCache) Close() error {
	return s.client.Close()
}

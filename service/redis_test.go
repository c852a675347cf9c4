package service

import (
	"context"
	"testing"
	"time"

	"github.com/chaos-io/cutout/config"
	"github.com/stretchr/testify/assert"
)

func TestRedisCache_Unreachable(t *testing.T) {
	cache := NewRedisCache(&config.RedisConfig{Addr: "127.0.0.1:1", TTL: time.Minute})
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, cache.Ping(ctx))

	data, err := cache.Get(ctx, "missing")
	assert.Error(t, err)
	assert.Nil(t, data)

	assert.Error(t, cache.Set(ctx, "key", []byte("value")))
}

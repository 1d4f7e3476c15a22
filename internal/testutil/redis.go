package testutil

import (
	"testing"

	"dailystudy/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewMiniRedisCache starts an in-memory Redis bound to the test lifetime.
func NewMiniRedisCache(t testing.TB) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rc, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("create redis cache: %v", err)
	}
	return rc, mr
}

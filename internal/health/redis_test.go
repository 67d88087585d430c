package health

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisChecker_Name(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	checker := NewRedisChecker(client)
	if checker.Name() != "redis" {
		t.Errorf("Name() = %q, want redis", checker.Name())
	}
}

func TestRedisChecker_Unreachable(t *testing.T) {
	// Port 1 is never a Redis server.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := NewRedisChecker(client).HealthCheck(ctx); err == nil {
		t.Error("expected error for unreachable redis")
	}
}

func TestRedisChecker_ImplementsChecker(t *testing.T) {
	var _ Checker = (*RedisChecker)(nil)
	var _ Checker = (*DBChecker)(nil)
}

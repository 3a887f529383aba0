package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/cotravels/internal/config"
)

func installRedisStub(t *testing.T, pingErr error) *redis.Options {
	t.Helper()
	origNew, origPing := newRedisClient, redisPing
	t.Cleanup(func() { newRedisClient, redisPing = origNew, origPing })

	var captured redis.Options
	newRedisClient = func(opts *redis.Options) *redis.Client {
		captured = *opts
		// Never dialled: the ping seam is stubbed.
		return redis.NewClient(&redis.Options{Addr: "localhost:0"})
	}
	redisPing = func(ctx context.Context, client *redis.Client) error { return pingErr }
	return &captured
}

func TestNewRedisDB_Options(t *testing.T) {
	got := installRedisStub(t, nil)

	db, err := NewRedisDB(config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2, PoolSize: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if got.Addr != "cache:6380" || got.Password != "pw" || got.DB != 2 {
		t.Fatalf("connection options not applied: %+v", got)
	}
	if got.PoolSize != 20 || got.MinIdleConns != 5 {
		t.Fatalf("expected pool 20 with 5 idle, got %d/%d", got.PoolSize, got.MinIdleConns)
	}
	if got.DialTimeout != 5*time.Second || got.ReadTimeout != 3*time.Second || got.WriteTimeout != 3*time.Second {
		t.Fatalf("unexpected timeouts: %+v", got)
	}
}

func TestNewRedisDB_DefaultPool(t *testing.T) {
	got := installRedisStub(t, nil)

	db, err := NewRedisDB(config.RedisConfig{Host: "cache", Port: 6379})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if got.PoolSize != 0 || got.MinIdleConns != 0 {
		t.Fatalf("unset pool size should defer to the client default, got %d/%d", got.PoolSize, got.MinIdleConns)
	}
}

func TestNewRedisDB_PingError(t *testing.T) {
	installRedisStub(t, errors.New("refused"))

	_, err := NewRedisDB(config.RedisConfig{Host: "cache", Port: 6379})
	if err == nil || !strings.Contains(err.Error(), "cache:6379") {
		t.Fatalf("expected ping error naming the address, got %v", err)
	}
}

func TestRedisDB_Health(t *testing.T) {
	origPing := redisPing
	t.Cleanup(func() { redisPing = origPing })

	db := &RedisDB{Client: redis.NewClient(&redis.Options{Addr: "localhost:0"})}
	t.Cleanup(func() { _ = db.Close() })

	redisPing = func(ctx context.Context, client *redis.Client) error { return nil }
	if err := db.Health(context.Background()); err != nil {
		t.Fatalf("unexpected health error: %v", err)
	}

	redisPing = func(ctx context.Context, client *redis.Client) error { return errors.New("down") }
	if err := db.Health(context.Background()); err == nil {
		t.Fatal("expected health error")
	}

	if err := (&RedisDB{}).Health(context.Background()); err == nil {
		t.Fatal("expected error without a client")
	}
	if err := (&RedisDB{}).Close(); err != nil {
		t.Fatalf("closing an empty RedisDB should be a no-op, got %v", err)
	}
}

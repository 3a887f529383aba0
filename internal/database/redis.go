package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/cotravels/internal/config"
)

var (
	newRedisClient = redis.NewClient
	redisPing      = func(ctx context.Context, client *redis.Client) error { return client.Ping(ctx).Err() }
)

// RedisDB holds the client used for the token blacklist mirror.
type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(cfg config.RedisConfig) (*RedisDB, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     cfg.PoolSize,
	}
	if opts.PoolSize > 0 {
		opts.MinIdleConns = max(1, opts.PoolSize/4)
	}
	client := newRedisClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisPing(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

func (r *RedisDB) Health(ctx context.Context) error {
	if r.Client == nil {
		return errors.New("redis client not initialised")
	}
	return redisPing(ctx, r.Client)
}

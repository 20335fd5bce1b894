package storage

import (
	"context"
	"fmt"

	"github.com/mediocregopher/radix.v2/pool"
	"github.com/mediocregopher/radix.v2/redis"
)

// redisClient is the part of *pool.Pool the store uses.
type redisClient interface {
	Cmd(cmd string, args ...interface{}) *redis.Resp
	Empty()
}

// RedisStore keeps the serialized portfolio under a plain redis string key.
type RedisStore struct {
	Pool redisClient
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore dials a connection pool of the given size.
func NewRedisStore(addr string, size int) (*RedisStore, error) {
	p, err := pool.New("tcp", addr, size)
	if err != nil {
		return nil, fmt.Errorf("redis pool: %w", err)
	}
	return &RedisStore{Pool: p}, nil
}

func (r *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := r.Pool.Cmd("GET", key)
	if resp.Err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, resp.Err)
	}
	if resp.IsType(redis.Nil) {
		return nil, ErrNotFound
	}
	return resp.Bytes()
}

func (r *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Pool.Cmd("SET", key, data).Err; err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// Close empties the pool.
func (r *RedisStore) Close() {
	r.Pool.Empty()
}

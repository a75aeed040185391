// Package redisclient owns the Redis connection and the per-agenda
// advisory lock used to serialize booking attempts.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Lock acquire/release round trips must stay well under the lock TTL.
	commandTimeout = 2 * time.Second
	dialTimeout    = 5 * time.Second
)

// NewRedisClient connects and verifies the instance is reachable. The
// service treats Redis as an availability optimization, but a broken
// address is a deployment error worth failing on.
func NewRedisClient(addr, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		ReadTimeout:  commandTimeout,
		WriteTimeout: commandTimeout,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Package redis shares processing progress between service instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"metinanaliz/internal/config"
	"metinanaliz/internal/logger"
)

const pingTimeout = 3 * time.Second

// ErrCacheMiss is returned by Get for absent or expired keys.
var ErrCacheMiss = redis.Nil

var errNotInitialized = errors.New("redis client not initialized")

// Client is the small key/value surface the progress store needs.
type Client struct {
	inner *redis.Client
	addr  string
}

// NewRedisClient connects with the redis block of the config. The server must
// answer a ping before the client is returned.
func NewRedisClient(cfg config.RedisConfig) (*Client, error) {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 6379
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	inner := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	c := &Client{inner: inner, addr: addr}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		inner.Close()
		return nil, err
	}
	logger.For("redis").WithField("addr", addr).Info("redis connected")
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	if err := c.inner.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis %s: %w", c.addr, err)
	}
	return nil
}

// Set stores value under key; a zero ttl keeps it forever.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	return c.inner.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c == nil || c.inner == nil {
		return "", errNotInitialized
	}
	return c.inner.Get(ctx, key).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	if len(keys) == 0 {
		return nil
	}
	return c.inner.Del(ctx, keys...).Err()
}

func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// internal/common/database/redis.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow-leads/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client
type RedisClient struct {
	Client    *redis.Client
	keyPrefix string
}

// NewRedis creates a new Redis client
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	return &RedisClient{Client: rdb, keyPrefix: cfg.KeyPrefix}, nil
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// Document returns a Document stored under the prefixed key.
func (c *RedisClient) Document(name string) *RedisDocument {
	return &RedisDocument{client: c.Client, key: c.keyPrefix + name}
}

// RedisDocument stores the whole JSON document as a single string value.
type RedisDocument struct {
	client *redis.Client
	key    string
}

func NewRedisDocument(client *redis.Client, key string) *RedisDocument {
	return &RedisDocument{client: client, key: key}
}

func (d *RedisDocument) Name() string {
	return "redis:" + d.key
}

func (d *RedisDocument) Load(ctx context.Context) ([]byte, error) {
	data, err := d.client.Get(ctx, d.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", d.key, err)
	}
	return data, nil
}

func (d *RedisDocument) Save(ctx context.Context, data []byte) error {
	if err := d.client.Set(ctx, d.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", d.key, err)
	}
	return nil
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/geyser-noncompliance/pkg/config"
)

const connectTimeout = 3 * time.Second

// Client is the Redis connection shared by drafts, the read cache and the event bus
type Client struct {
	client *redis.Client
	name   string
}

// NewClient connects to Redis and verifies the connection once. The client
// name shows up in CLIENT LIST so draft traffic can be traced to this service.
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(options(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr(), err)
	}

	log.Info().
		Str("addr", cfg.RedisAddr()).
		Int("db", cfg.DB).
		Str("client_name", cfg.ClientName).
		Msg("Connected to Redis for drafts and assessment events")
	return &Client{client: client, name: cfg.ClientName}, nil
}

func options(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:        cfg.RedisAddr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		ClientName:  cfg.ClientName,
		PoolSize:    cfg.PoolSize,
		DialTimeout: connectTimeout,
	}
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Health reports whether Redis answers
func (c *Client) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s unreachable: %w", c.name, err)
	}
	return nil
}

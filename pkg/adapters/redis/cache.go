// Package redis implements ports.GraphCache on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// Cache implements ports.GraphCache using Redis strings with a TTL and a
// sorted-set index of cached graph ids.
type Cache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Cache)

// WithTTL sets the expiration of cached graphs.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a Redis cache with its own client.
func New(address, password string, db int, opts ...Option) *Cache {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis cache from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		prefix: "lettergraph:graph:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(graphID string) string {
	return c.prefix + graphID
}

func (c *Cache) indexKey() string {
	return c.prefix + "index"
}

// Put stores doc as JSON and records it in the index.
func (c *Cache) Put(ctx context.Context, doc *domain.GraphDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.key(doc.ID), data, c.ttl)

	// Score = expiry time, so List can prune lazily.
	score := float64(time.Now().Add(c.ttl).Unix())
	if c.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, c.indexKey(), backend.Z{Score: score, Member: doc.ID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get returns the cached document or domain.ErrGraphNotFound.
func (c *Cache) Get(ctx context.Context, graphID string) (*domain.GraphDocument, error) {
	val, err := c.client.Get(ctx, c.key(graphID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, graphID)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var doc domain.GraphDocument
	if err := json.Unmarshal(val, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &doc, nil
}

// Invalidate removes graphID from the cache and the index.
func (c *Cache) Invalidate(ctx context.Context, graphID string) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, c.key(graphID))
	pipe.ZRem(ctx, c.indexKey(), graphID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the ids of cached graphs, pruning expired index entries first.
func (c *Cache) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := c.client.ZRemRangeByScore(ctx, c.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired graphs: %w", err)
	}
	ids, err := c.client.ZRange(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	return ids, nil
}

// Ping checks the connection; the HTTP health check uses it.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

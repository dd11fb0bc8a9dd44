// Package cache stores slow-changing catalog lists in redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/domain/repositories"
	"github.com/meagent/meagent_service/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const (
	keyBrands     = "meagent:catalog:brands"
	keyCategories = "meagent:catalog:categories"
)

// ErrMiss is returned when a key is absent
var ErrMiss = repositories.ErrCacheMiss

// redisClient is the subset of redis.Cmdable the cache uses
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CatalogCache caches brand and category lists. Offer details and brand
// offers are never cached since price and variant data change.
type CatalogCache struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisClient opens a redis client for cfg
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewCatalogCache creates a cache with the given TTL
func NewCatalogCache(client redisClient, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{client: client, ttl: ttl}
}

func (c *CatalogCache) Brands(ctx context.Context) ([]entities.Brand, error) {
	var out []entities.Brand
	return out, c.get(ctx, keyBrands, &out)
}

func (c *CatalogCache) SetBrands(ctx context.Context, brands []entities.Brand) error {
	return c.set(ctx, keyBrands, brands)
}

func (c *CatalogCache) Categories(ctx context.Context) ([]entities.Category, error) {
	var out []entities.Category
	return out, c.get(ctx, keyCategories, &out)
}

func (c *CatalogCache) SetCategories(ctx context.Context, categories []entities.Category) error {
	return c.set(ctx, keyCategories, categories)
}

// Invalidate drops every cached list
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, keyBrands, keyCategories).Err()
}

func (c *CatalogCache) get(ctx context.Context, key string, out interface{}) error {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

func (c *CatalogCache) set(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

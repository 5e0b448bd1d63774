package pnl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-pnl/internal/period"
)

const cacheVersionKey = "pnl:version"

// Cache stores built statements in Redis under a global version so a
// single bump invalidates every cached window. A nil cache (or client)
// degrades to building on every call.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key composes the cache key for a period and optional custom window,
// embedding the current version.
func (c *Cache) Key(ctx context.Context, p period.Period, custom *period.Window) (string, error) {
	parts := []string{"pnl", "stmt", string(p)}
	if custom != nil {
		parts = append(parts,
			custom.Start.Format("2006-01-02"),
			custom.End.Format("2006-01-02"))
	}
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// Fetch loads a cached statement or builds and stores one.
func (c *Cache) Fetch(ctx context.Context, key string, build func(context.Context) (*Structure, error)) (*Structure, error) {
	if build == nil {
		return nil, errors.New("pnl: cache builder required")
	}
	if c == nil || c.client == nil {
		return build(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var st Structure
		if err := json.Unmarshal(payload, &st); err == nil {
			return &st, nil
		}
		// Fall through and rebuild on a corrupt entry.
	} else if err != redis.Nil {
		return nil, err
	}
	st, err := build(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return nil, err
	}
	return st, nil
}

// Bump invalidates every cached statement by incrementing the version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func (c *Cache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

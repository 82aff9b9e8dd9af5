// Package redis provides a read-through cache for link records on the
// resolve path. Only the fields that are immutable after creation are
// cached; scan statistics always come from the record store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pavelzubkov/qrlink/internal/entity"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when no cached record exists for the identifier.
var ErrCacheMiss = errors.New("cache miss")

// Client is the subset of redis.Client used by LinkCache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type cachedLink struct {
	LinkID      string             `json:"link_id"`
	DefaultURL  string             `json:"default_url"`
	VariantURLs entity.VariantURLs `json:"variant_urls,omitempty"`
	Theme       string             `json:"theme,omitempty"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`
}

type LinkCache struct {
	rdb    Client
	prefix string
	ttl    time.Duration
}

type Option func(*LinkCache)

func WithPrefix(prefix string) Option {
	return func(c *LinkCache) {
		c.prefix = prefix
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(c *LinkCache) {
		c.ttl = ttl
	}
}

func NewLinkCache(rdb Client, opts ...Option) *LinkCache {
	c := &LinkCache{
		rdb:    rdb,
		prefix: "qrlink:link",
		ttl:    5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LinkCache) key(linkID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, linkID)
}

func (c *LinkCache) Get(ctx context.Context, linkID string) (*entity.Link, error) {
	const op = "adapter.cache.redis.LinkCache.Get"

	data, err := c.rdb.Get(ctx, c.key(linkID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, ErrCacheMiss)
		}

		return nil, fmt.Errorf("%s: failed to get cached link: %w", op, err)
	}

	var cached cachedLink
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal cached link: %w", op, err)
	}

	return &entity.Link{
		LinkID:      cached.LinkID,
		DefaultURL:  cached.DefaultURL,
		VariantURLs: cached.VariantURLs,
		Theme:       cached.Theme,
		ExpiresAt:   cached.ExpiresAt,
	}, nil
}

func (c *LinkCache) Set(ctx context.Context, link *entity.Link) error {
	const op = "adapter.cache.redis.LinkCache.Set"

	data, err := json.Marshal(cachedLink{
		LinkID:      link.LinkID,
		DefaultURL:  link.DefaultURL,
		VariantURLs: link.VariantURLs,
		Theme:       link.Theme,
		ExpiresAt:   link.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to marshal link: %w", op, err)
	}

	if err := c.rdb.Set(ctx, c.key(link.LinkID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set cached link: %w", op, err)
	}

	return nil
}

// Invalidate drops the cached record, if any. Callers invoke it after a
// link is modified or removed.
func (c *LinkCache) Invalidate(ctx context.Context, linkID string) error {
	const op = "adapter.cache.redis.LinkCache.Invalidate"

	if err := c.rdb.Del(ctx, c.key(linkID)).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete cached link: %w", op, err)
	}

	return nil
}

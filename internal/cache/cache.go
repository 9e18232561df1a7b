package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/outage-ledger/internal/outage"
)

// DefaultTTL bounds how long a location can be served stale.
const DefaultTTL = 10 * time.Minute

// Cache is a Redis read-through cache of location records, consulted when an
// outage resolves its location for weather enrichment.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache. A non-positive ttl falls back to DefaultTTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Open connects to redisURL, verifies the server with a ping and returns a
// Cache over the new client. The URL may carry its own db number and
// credentials. The caller must Close the Cache.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	c := NewCache(redis.NewClient(opts), ttl)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", opts.Addr, err)
	}

	return c, nil
}

func key(id int64) string {
	return "location:" + strconv.FormatInt(id, 10)
}

// Get retrieves a location from cache.
// Returns nil, nil on a cache miss (not an error).
func (c *Cache) Get(ctx context.Context, id int64) (*outage.Location, error) {
	val, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for location %d: %w", id, err)
	}

	var l outage.Location
	if err := json.Unmarshal(val, &l); err != nil {
		return nil, fmt.Errorf("unmarshaling cached location %d: %w", id, err)
	}

	return &l, nil
}

// Set stores the location with the configured TTL.
func (c *Cache) Set(ctx context.Context, l *outage.Location) error {
	if l == nil {
		return nil
	}

	b, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshaling location %d: %w", l.ID, err)
	}

	if err := c.client.Set(ctx, key(l.ID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for location %d: %w", l.ID, err)
	}

	return nil
}

// Delete removes the cached entry for the location.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("cache delete for location %d: %w", id, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

package redisx

import (
	"context"
	"encoding/json"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ViewCache is a generic JSON-backed Redis cache for read model projections.
// Bind it to a specific view type T with a key prefix that namespaces the
// view, and an optional TTL (pass 0 for keys that should not expire). Keys
// are prefix+id, so callers only ever pass domain ids.
type ViewCache[T any] struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewViewCache creates a ViewCache backed by the provided Redis client.
func NewViewCache[T any](client *goredis.Client, prefix string, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, prefix: prefix, ttl: ttl}
}

// Get retrieves and unmarshals the view stored for id.
// Returns (nil, false) on any miss or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, id string) (*T, bool) {
	data, err := c.client.Get(ctx, c.prefix+id).Result()
	if err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Set marshals value and stores it under id.
// Errors are logged rather than returned — a cache write miss is non-fatal.
func (c *ViewCache[T]) Set(ctx context.Context, id string, value *T) {
	if data, err := json.Marshal(value); err != nil {
		log.Printf("ViewCache: marshal error for key %s%s: %v", c.prefix, id, err)
	} else if err := c.client.Set(ctx, c.prefix+id, data, c.ttl).Err(); err != nil {
		log.Printf("ViewCache: write error for key %s%s: %v", c.prefix, id, err)
	}
}

// Delete removes the view stored for id.
func (c *ViewCache[T]) Delete(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.prefix+id).Err(); err != nil {
		log.Printf("ViewCache: delete error for key %s%s: %v", c.prefix, id, err)
	}
}

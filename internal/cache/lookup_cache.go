package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qoffice/dispatcher/internal/models"
)

// LookupCache is a read-through cache in front of the Lookup API's
// public/admin snapshot projections (C9), keyed per office. Entries
// expire after ttl; nothing in the dispatcher or janitor calls
// Invalidate, so a cached snapshot can lag ticket and window changes
// until it expires.
type LookupCache struct {
	redis *RedisCache
	ttl   time.Duration
}

func NewLookupCache(redis *RedisCache, ttl time.Duration) *LookupCache {
	return &LookupCache{redis: redis, ttl: ttl}
}

func publicKey(office models.Office) string { return fmt.Sprintf("snapshot:public:%s", office) }
func adminKey(office models.Office) string  { return fmt.Sprintf("snapshot:admin:%s", office) }

// get populates dest from key and reports whether a cached value was
// found and decoded; a miss or a Redis error reports false.
func (c *LookupCache) get(ctx context.Context, key string, dest interface{}) bool {
	if c.redis == nil {
		return false
	}
	val, err := c.redis.Get(ctx, key)
	if err != nil || val == nil {
		return false
	}
	data, ok := val.([]byte)
	return ok && json.Unmarshal(data, dest) == nil
}

// GetPublic populates dest from cache and reports whether it was found.
func (c *LookupCache) GetPublic(ctx context.Context, office models.Office, dest interface{}) bool {
	return c.get(ctx, publicKey(office), dest)
}

func (c *LookupCache) SetPublic(ctx context.Context, office models.Office, snapshot interface{}) {
	if c.redis == nil {
		return
	}
	_ = c.redis.SetObject(ctx, publicKey(office), snapshot, c.ttl)
}

func (c *LookupCache) GetAdmin(ctx context.Context, office models.Office, dest interface{}) bool {
	return c.get(ctx, adminKey(office), dest)
}

func (c *LookupCache) SetAdmin(ctx context.Context, office models.Office, snapshot interface{}) {
	if c.redis == nil {
		return
	}
	_ = c.redis.SetObject(ctx, adminKey(office), snapshot, c.ttl)
}

// Invalidate drops both snapshots for office.
func (c *LookupCache) Invalidate(ctx context.Context, office models.Office) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Delete(ctx, publicKey(office))
	_ = c.redis.Delete(ctx, adminKey(office))
}

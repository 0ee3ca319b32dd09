package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"leaseflow/internal/common/logger"
	"leaseflow/internal/lifecycle"
	"leaseflow/internal/models"
)

// Cached decorates a Repository with a Redis read-through cache for the
// reference lookups (properties and users). Those records change rarely
// yet every owner authorization check reads one. Applications themselves
// are never cached: the authoritative status lives in PostgreSQL alone. Redis
// being down degrades to the database, never to an error.
type Cached struct {
	lifecycle.Repository

	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewCached wraps inner with property/user caching. ttlSeconds at or
// below zero falls back to five minutes.
func NewCached(inner lifecycle.Repository, client *redis.Client, ttlSeconds int, log logger.Logger) *Cached {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{
		Repository: inner,
		redis:      client,
		ttl:        ttl,
		logger:     log.WithFields(map[string]interface{}{"component": "repository_cache"}),
	}
}

func (c *Cached) LoadProperty(ctx context.Context, id string) (*models.Property, error) {
	key := "leaseflow:property:" + id
	var property models.Property
	if c.readCached(ctx, key, &property) {
		return &property, nil
	}

	fresh, err := c.Repository.LoadProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCached(ctx, key, fresh)
	return fresh, nil
}

func (c *Cached) LoadUser(ctx context.Context, id string) (*models.User, error) {
	key := "leaseflow:user:" + id
	var user models.User
	if c.readCached(ctx, key, &user) {
		return &user, nil
	}

	fresh, err := c.Repository.LoadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCached(ctx, key, fresh)
	return fresh, nil
}

func (c *Cached) readCached(ctx context.Context, key string, dst interface{}) bool {
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		c.redis.Del(ctx, key)
		return false
	}
	return true
}

func (c *Cached) writeCached(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

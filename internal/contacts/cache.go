package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix = "hr-contact:"

	// noContactMarker caches the absence of a contact so companies without
	// one are not re-searched every run.
	noContactMarker = "none"
)

// Cache stores contact lookups in Redis, including negative results.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(addr, password string, db int, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// Get returns the cached contact for a company. The second return reports
// whether any entry exists; a nil contact with true means a cached miss.
func (c *Cache) Get(ctx context.Context, company string) (*Contact, bool) {
	if c == nil {
		return nil, false
	}

	value, err := c.client.Get(ctx, cacheKey(company)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("contact cache read failed", zap.String("company", company), zap.Error(err))
		return nil, false
	}

	if value == noContactMarker {
		return nil, true
	}

	var contact Contact
	if err := json.Unmarshal([]byte(value), &contact); err != nil {
		c.logger.Warn("contact cache entry corrupt", zap.String("company", company), zap.Error(err))
		return nil, false
	}

	return &contact, true
}

// Put stores a lookup result. A nil contact records that the company has no
// reachable contact.
func (c *Cache) Put(ctx context.Context, company string, contact *Contact) {
	if c == nil {
		return
	}

	value := noContactMarker
	if contact != nil {
		encoded, err := json.Marshal(contact)
		if err != nil {
			c.logger.Warn("contact cache encode failed", zap.String("company", company), zap.Error(err))
			return
		}
		value = string(encoded)
	}

	if err := c.client.Set(ctx, cacheKey(company), value, c.ttl).Err(); err != nil {
		c.logger.Warn("contact cache write failed", zap.String("company", company), zap.Error(err))
	}
}

func cacheKey(company string) string {
	return cacheKeyPrefix + strings.ToLower(strings.TrimSpace(company))
}

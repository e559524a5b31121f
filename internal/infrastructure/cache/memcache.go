package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"

	"github.com/totegamma/gamecatalog/internal/domain"
)

const keyPrefix = "catalog:"

// memcached reads relative expirations above 30 days as unix timestamps and
// treats zero as never expiring.
const (
	minExpiration = time.Second
	maxExpiration = 30 * 24 * time.Hour
)

// Memcache shares cached records between server instances. Cache failures
// are logged and treated as misses.
type Memcache struct {
	mc  *memcache.Client
	ttl time.Duration
}

// NewMemcache clamps ttl to the range memcached accepts as a relative
// expiration.
func NewMemcache(mc *memcache.Client, ttl time.Duration) *Memcache {
	ttl = min(max(ttl, minExpiration), maxExpiration)
	return &Memcache{mc: mc, ttl: ttl}
}

func (c *Memcache) expiration() int32 {
	return int32(c.ttl / time.Second)
}

func (c *Memcache) Get(ctx context.Context, key string) (domain.Record, bool) {
	item, err := c.mc.Get(keyPrefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return domain.Record{}, false
	}
	if err != nil {
		c.warn(ctx, "memcache get failed", key, err)
		return domain.Record{}, false
	}

	var record domain.Record
	if err := json.Unmarshal(item.Value, &record); err != nil {
		c.warn(ctx, "memcache entry is corrupted", key, err)
		return domain.Record{}, false
	}
	return record, true
}

func (c *Memcache) Set(ctx context.Context, key string, record domain.Record) {
	value, err := json.Marshal(record)
	if err != nil {
		c.warn(ctx, "failed to encode record", key, err)
		return
	}

	err = c.mc.Set(&memcache.Item{
		Key:        keyPrefix + key,
		Value:      value,
		Expiration: c.expiration(),
	})
	if err != nil {
		c.warn(ctx, "memcache set failed", key, err)
	}
}

func (c *Memcache) Delete(ctx context.Context, key string) {
	err := c.mc.Delete(keyPrefix + key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		c.warn(ctx, "memcache delete failed", key, err)
	}
}

func (c *Memcache) warn(ctx context.Context, msg, key string, err error) {
	slog.WarnContext(
		ctx, msg,
		slog.String("key", key),
		slog.String("error", err.Error()),
		slog.String("module", "cache"),
	)
}

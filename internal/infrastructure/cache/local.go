package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/totegamma/gamecatalog/internal/domain"
)

// Local is an in-process cache, used when no memcached server is configured.
type Local struct {
	cache *gocache.Cache
}

func NewLocal(ttl time.Duration) *Local {
	return &Local{cache: gocache.New(ttl, 2*ttl)}
}

func (c *Local) Get(ctx context.Context, key string) (domain.Record, bool) {
	v, found := c.cache.Get(key)
	if !found {
		return domain.Record{}, false
	}
	return v.(domain.Record).Clone(), true
}

func (c *Local) Set(ctx context.Context, key string, record domain.Record) {
	c.cache.SetDefault(key, record.Clone())
}

func (c *Local) Delete(ctx context.Context, key string) {
	c.cache.Delete(key)
}

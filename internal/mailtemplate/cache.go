package mailtemplate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cached is a read-through cache in front of a Store. Get results are kept
// for the TTL; Update and Delete evict the entry.
type Cached struct {
	Store
	c *gocache.Cache
}

// NewCached wraps s with a TTL cache on Get.
func NewCached(s Store, ttl time.Duration) *Cached {
	return &Cached{Store: s, c: gocache.New(ttl, time.Minute)}
}

func (c *Cached) Get(ctx context.Context, id string) (Template, error) {
	if v, ok := c.c.Get(id); ok {
		if t, ok := v.(Template); ok {
			return t, nil
		}
	}
	t, err := c.Store.Get(ctx, id)
	if err != nil {
		return Template{}, err
	}
	c.c.SetDefault(id, t)
	return t, nil
}

func (c *Cached) Update(ctx context.Context, id string, in Input) (Template, error) {
	c.c.Delete(id)
	t, err := c.Store.Update(ctx, id, in)
	if err != nil {
		return Template{}, err
	}
	c.c.SetDefault(id, t)
	return t, nil
}

func (c *Cached) Delete(ctx context.Context, id string) error {
	c.c.Delete(id)
	return c.Store.Delete(ctx, id)
}

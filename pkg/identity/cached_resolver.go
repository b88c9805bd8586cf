package identity

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// cachedResolver memoizes successful lookups. Misses and failures are not
// cached, so a transient directory outage does not pin "no email" results.
type cachedResolver struct {
	inner Resolver
	cache *cache.Cache
}

func NewCachedResolver(inner Resolver, ttl time.Duration) Resolver {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &cachedResolver{
		inner: inner,
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *cachedResolver) LookupEmail(ctx context.Context, participantId string) (string, bool, error) {
	if x, found := r.cache.Get(participantId); found {
		return x.(string), true, nil
	}

	email, found, err := r.inner.LookupEmail(ctx, participantId)
	if err != nil || !found {
		return "", false, err
	}

	r.cache.Set(participantId, email, cache.DefaultExpiration)
	return email, true, nil
}

package directory

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
)

// Cached decorates a Directory with a short TTL cache on Lookup, keeping
// repeated gate-adjacent lookups off the backend. Mutating calls invalidate
// the cached entry before delegating, so a transition is never answered from
// stale eligibility.
type Cached struct {
	inner Directory
	cache *gocache.Cache
}

// NewCached wraps inner with a lookup cache using the given TTL.
func NewCached(inner Directory, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func cacheKey(provider providers.Name, subject string) string {
	return fmt.Sprintf("%s/%s", provider, subject)
}

func (c *Cached) Lookup(ctx context.Context, provider providers.Name, subject, email string) (Profile, error) {
	key := cacheKey(provider, subject)
	if cached, ok := c.cache.Get(key); ok {
		return cached.(Profile), nil
	}

	profile, err := c.inner.Lookup(ctx, provider, subject, email)
	if err != nil {
		return Profile{}, err
	}
	c.cache.SetDefault(key, profile)
	return profile, nil
}

func (c *Cached) CompleteOnboarding(ctx context.Context, provider providers.Name, subject, email string, input OnboardingInput) (Profile, error) {
	c.cache.Delete(cacheKey(provider, subject))
	return c.inner.CompleteOnboarding(ctx, provider, subject, email, input)
}

func (c *Cached) AssignRole(ctx context.Context, provider providers.Name, subject, email string, role roles.Role) (string, error) {
	c.cache.Delete(cacheKey(provider, subject))
	return c.inner.AssignRole(ctx, provider, subject, email, role)
}

var _ Directory = (*Cached)(nil)

package store

import (
	"context"
	"time"

	"backoffice/internal/domain/dispatch"

	"github.com/patrickmn/go-cache"
)

var _ dispatch.SettingsProvider = (*CachedSettings)(nil)

const adminSettingsKey = "admin"

// CachedSettings keeps the admin settings in memory for a TTL so a burst
// of events costs one lookup.
type CachedSettings struct {
	next  dispatch.SettingsProvider
	cache *cache.Cache
}

// NewCachedSettings wraps next with a TTL cache.
func NewCachedSettings(next dispatch.SettingsProvider, ttl time.Duration) *CachedSettings {
	return &CachedSettings{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

// AdminSettings returns the cached settings or loads them. Errors are not
// cached.
func (c *CachedSettings) AdminSettings(ctx context.Context) (*dispatch.Settings, error) {
	if cached, found := c.cache.Get(adminSettingsKey); found {
		if s, ok := cached.(*dispatch.Settings); ok {
			cp := *s
			return &cp, nil
		}
	}

	s, err := c.next.AdminSettings(ctx)
	if err != nil {
		return nil, err
	}

	c.cache.Set(adminSettingsKey, s, cache.DefaultExpiration)
	cp := *s
	return &cp, nil
}

// Invalidate drops the cached settings.
func (c *CachedSettings) Invalidate() {
	c.cache.Delete(adminSettingsKey)
}

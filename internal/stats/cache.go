package stats

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// Provider resolves dashboard statistics for a channel.
type Provider interface {
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
}

// ErrProviderUnavailable indicates the stats provider is not configured.
var ErrProviderUnavailable = errors.New("channel stats provider unavailable")

type cacheEntry struct {
	stats   models.ChannelStats
	expires time.Time
}

// CachingProvider wraps another Provider with a TTL-based in-memory cache so
// dashboard refreshes do not re-run the aggregate queries on every request.
type CachingProvider struct {
	base Provider
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingProvider returns a Provider that caches lookups for the provided TTL.
func NewCachingProvider(base Provider, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProvider{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// ChannelStats returns cached stats when fresh, otherwise it delegates to
// the underlying provider and stores the result.
func (c *CachingProvider) ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	if c == nil || c.base == nil {
		return models.ChannelStats{}, ErrProviderUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[channelID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.stats, nil
	}

	stats, err := c.base.ChannelStats(ctx, channelID)
	if err != nil {
		return models.ChannelStats{}, err
	}

	c.mu.Lock()
	c.items[channelID] = cacheEntry{stats: stats, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return stats, nil
}

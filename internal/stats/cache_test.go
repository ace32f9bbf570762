package stats

import (
	"context"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/models"
)

type stubProvider struct {
	stats models.ChannelStats
	err   error
	calls int
}

func (s *stubProvider) ChannelStats(context.Context, string) (models.ChannelStats, error) {
	s.calls++
	if s.err != nil {
		return models.ChannelStats{}, s.err
	}
	return s.stats, nil
}

func TestCachingProviderChannelStats(t *testing.T) {
	base := &stubProvider{stats: models.ChannelStats{TotalVideos: 3, TotalViews: 120}}
	cache := NewCachingProvider(base, time.Minute)

	ctx := context.Background()

	stats, err := cache.ChannelStats(ctx, "channel-1")
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if stats.TotalVideos != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if base.calls != 1 {
		t.Fatalf("expected base called once got %d", base.calls)
	}

	if _, err := cache.ChannelStats(ctx, "channel-1"); err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected cached result got %d calls", base.calls)
	}

	// A different channel misses the cache.
	if _, err := cache.ChannelStats(ctx, "channel-2"); err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected miss for second channel got %d calls", base.calls)
	}
}

func TestCachingProviderErrors(t *testing.T) {
	cache := NewCachingProvider(nil, time.Minute)
	if _, err := cache.ChannelStats(context.Background(), "channel-1"); err != ErrProviderUnavailable {
		t.Fatalf("expected provider unavailable got %v", err)
	}

	base := &stubProvider{err: ErrProviderUnavailable}
	cache = NewCachingProvider(base, time.Minute)
	if _, err := cache.ChannelStats(context.Background(), "channel-1"); err != ErrProviderUnavailable {
		t.Fatalf("expected provider unavailable got %v", err)
	}
}

func TestCachingProviderExpiry(t *testing.T) {
	base := &stubProvider{stats: models.ChannelStats{TotalVideos: 1}}
	cache := NewCachingProvider(base, time.Millisecond)

	if _, err := cache.ChannelStats(context.Background(), "channel-1"); err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected 1 call got %d", base.calls)
	}

	time.Sleep(2 * time.Millisecond)

	if _, err := cache.ChannelStats(context.Background(), "channel-1"); err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected cache miss after expiry got %d calls", base.calls)
	}
}

func TestCachingProviderDefaultTTL(t *testing.T) {
	cache := NewCachingProvider(&stubProvider{}, 0)
	if cache.ttl <= 0 {
		t.Fatalf("expected ttl to default positive got %v", cache.ttl)
	}
}

package histcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexpulse/internal/feed"
	"indexpulse/pkg/contracts/domain"
)

func sampleBars() []domain.Bar {
	return []domain.Bar{
		{Date: time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), Close: 12.5, Volume: 1000},
		{Date: time.Date(2020, 3, 3, 0, 0, 0, 0, time.UTC), Close: 12.75, Volume: 0},
	}
}

func TestCaches(t *testing.T) {
	ctx := context.Background()

	backends := map[string]func(t *testing.T) feed.HistoryCache{
		"csv": func(t *testing.T) feed.HistoryCache {
			cache, err := NewCSVCache(filepath.Join(t.TempDir(), "cache"))
			require.NoError(t, err)
			return cache
		},
		"sqlite": func(t *testing.T) feed.HistoryCache {
			cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
			require.NoError(t, err)
			t.Cleanup(func() { cache.Close() })
			return cache
		},
	}

	for name, newCache := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("miss on unknown ticker", func(t *testing.T) {
				cache := newCache(t)
				_, ok, err := cache.Load(ctx, "GHOST")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("round trip", func(t *testing.T) {
				cache := newCache(t)
				want := sampleBars()
				require.NoError(t, cache.Store(ctx, "DLST", want))

				got, ok, err := cache.Load(ctx, "DLST")
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, want, got)
			})

			t.Run("store replaces previous rows", func(t *testing.T) {
				cache := newCache(t)
				require.NoError(t, cache.Store(ctx, "DLST", sampleBars()))

				replacement := sampleBars()[:1]
				require.NoError(t, cache.Store(ctx, "DLST", replacement))

				got, ok, err := cache.Load(ctx, "DLST")
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, replacement, got)
			})
		})
	}
}

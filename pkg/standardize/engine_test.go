package standardize

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/database"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

func newTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type memProfileStore struct {
	profiles map[string]models.StandardizationProfile
	loads    int
}

func (s *memProfileStore) GetByPlatform(ctx context.Context, platform string) (*models.StandardizationProfile, error) {
	s.loads++
	if p, ok := s.profiles[platform]; ok {
		return &p, nil
	}
	return nil, nil
}

func testProfile(platform string) models.StandardizationProfile {
	return models.StandardizationProfile{
		ID:                       "profile-" + platform,
		Platform:                 platform,
		EngagementWeight:         1.0,
		ViewWeight:               1.0,
		ShareWeight:              2.0,
		CommentWeight:            1.5,
		LikeWeight:               0.5,
		PlatformEngagementFactor: 1.2,
		PlatformValueFactor:      10,
		MetricMappings: database.JSONB[map[string]string]{Data: map[string]string{
			"impressions":     "views",
			"interactions":    "engagements",
			"reshares":        "shares",
			"watch_time_secs": "watch_time_minutes",
		}},
	}
}

func rawMetric(raw map[string]float64) *models.DailyMetric {
	return &models.DailyMetric{
		ID:        "metric-1",
		ContentID: "content-1",
		Date:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Raw:       database.JSONB[map[string]float64]{Data: raw},
	}
}

func newTestEngine(profiles ...models.StandardizationProfile) (*Engine, *memProfileStore) {
	store := &memProfileStore{profiles: map[string]models.StandardizationProfile{}}
	for _, p := range profiles {
		store.profiles[p.Platform] = p
	}
	return NewEngine(NewProfileCache(store, time.Minute), newTestLogger()), store
}

func TestStandardize(t *testing.T) {
	t.Run("maps platform fields onto canonical names", func(t *testing.T) {
		engine, _ := newTestEngine(testProfile("tiktok"))

		row, err := engine.Standardize(context.Background(), "tiktok", rawMetric(map[string]float64{
			"impressions":  1000,
			"interactions": 100,
			"reshares":     10,
			"comments":     20,
			"likes":        50,
		}))

		require.NoError(t, err)
		assert.Equal(t, float64(1000), row.Views)
		assert.Equal(t, float64(100), row.Engagements)
		assert.Equal(t, float64(10), row.Shares)
		assert.Equal(t, float64(20), row.Comments)
		assert.Equal(t, float64(50), row.Likes)
		assert.Equal(t, "tiktok", row.Platform)
		assert.Equal(t, "content-1", row.ContentID)
	})

	t.Run("computes the weighted engagement score", func(t *testing.T) {
		engine, _ := newTestEngine(testProfile("tiktok"))

		row, err := engine.Standardize(context.Background(), "tiktok", rawMetric(map[string]float64{
			"interactions": 100,
			"reshares":     10,
			"comments":     20,
			"likes":        50,
		}))

		require.NoError(t, err)
		// (100*1.0 + 10*2.0 + 20*1.5 + 50*0.5) * 1.2
		assert.InDelta(t, 210.0, row.EngagementScore, 1e-9)
	})

	t.Run("estimates content value linearly", func(t *testing.T) {
		engine, _ := newTestEngine(testProfile("tiktok"))

		row, err := engine.Standardize(context.Background(), "tiktok", rawMetric(map[string]float64{
			"impressions":  1000,
			"interactions": 100,
		}))

		require.NoError(t, err)
		// engagement score = 100 * 1.0 * 1.2 = 120
		// (1000*1.0 + 120) / 1000 * 10
		assert.InDelta(t, 11.2, row.ContentValue, 1e-9)
	})

	t.Run("accumulates colliding mapped fields", func(t *testing.T) {
		engine, _ := newTestEngine(testProfile("tiktok"))

		row, err := engine.Standardize(context.Background(), "tiktok", rawMetric(map[string]float64{
			"impressions": 600,
			"views":       400,
		}))

		require.NoError(t, err)
		assert.Equal(t, float64(1000), row.Views)
	})

	t.Run("fails closed for an unregistered platform", func(t *testing.T) {
		engine, _ := newTestEngine(testProfile("tiktok"))

		row, err := engine.Standardize(context.Background(), "myspace", rawMetric(map[string]float64{
			"views": 100,
		}))

		require.Error(t, err)
		assert.Nil(t, row)
		assert.True(t, IsUnknownPlatform(err))
	})

	t.Run("is idempotent for identical input", func(t *testing.T) {
		engine, _ := newTestEngine(testProfile("tiktok"))
		raw := map[string]float64{"impressions": 1000, "interactions": 100, "likes": 3}

		first, err := engine.Standardize(context.Background(), "tiktok", rawMetric(raw))
		require.NoError(t, err)
		second, err := engine.Standardize(context.Background(), "tiktok", rawMetric(raw))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestProfileCache(t *testing.T) {
	t.Run("serves repeat lookups from cache", func(t *testing.T) {
		engine, store := newTestEngine(testProfile("tiktok"))

		for i := 0; i < 5; i++ {
			_, err := engine.Standardize(context.Background(), "tiktok", rawMetric(map[string]float64{"views": 1}))
			require.NoError(t, err)
		}

		assert.Equal(t, 1, store.loads)
	})

	t.Run("does not cache absence", func(t *testing.T) {
		store := &memProfileStore{profiles: map[string]models.StandardizationProfile{}}
		cache := NewProfileCache(store, time.Minute)

		profile, err := cache.Get(context.Background(), "youtube")
		require.NoError(t, err)
		assert.Nil(t, profile)

		// Registering the platform must take effect immediately
		store.profiles["youtube"] = testProfile("youtube")
		profile, err = cache.Get(context.Background(), "youtube")
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.Equal(t, "youtube", profile.Platform)
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		store := &memProfileStore{profiles: map[string]models.StandardizationProfile{
			"tiktok": testProfile("tiktok"),
		}}
		cache := NewProfileCache(store, time.Minute)

		_, err := cache.Get(context.Background(), "tiktok")
		require.NoError(t, err)
		cache.Invalidate("tiktok")
		_, err = cache.Get(context.Background(), "tiktok")
		require.NoError(t, err)

		assert.Equal(t, 2, store.loads)
	})
}

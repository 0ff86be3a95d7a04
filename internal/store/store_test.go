package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailycrypto/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "data", "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Feeds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	feed := &model.Feed{Name: "CoinDesk", URL: "https://www.coindesk.com/arc/outboundfeeds/rss/", Enabled: true}
	require.NoError(t, s.CreateFeed(ctx, feed))
	require.NotZero(t, feed.ID)

	got, err := s.GetFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, "CoinDesk", got.Name)

	_, err = s.GetFeed(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	feeds, err := s.ListFeeds(ctx)
	require.NoError(t, err)
	assert.Len(t, feeds, 1)

	require.NoError(t, s.db.Model(&model.Feed{}).Where("id = ?", feed.ID).Update("enabled", false).Error)
	enabled, err := s.EnabledFeeds(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)
}

func TestStore_StaticArticles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	feed := &model.Feed{Name: "F", URL: "https://example.com/rss", Enabled: true}
	require.NoError(t, s.CreateFeed(ctx, feed))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, slug := range []string{"old", "newest", "middle"} {
		offset := map[string]int{"old": 0, "middle": 1, "newest": 2}[slug]
		created, err := s.SaveStaticArticle(ctx, &model.StaticArticle{
			FeedID:  feed.ID,
			Slug:    slug,
			Title:   slug,
			Link:    "https://example.com/" + slug,
			Tags:    []string{"t"},
			PubDate: base.Add(time.Duration(offset) * time.Hour),
		})
		require.NoError(t, err, i)
		assert.True(t, created)
	}

	// same link is not inserted twice
	created, err := s.SaveStaticArticle(ctx, &model.StaticArticle{FeedID: feed.ID, Slug: "dup", Title: "dup", Link: "https://example.com/old"})
	require.NoError(t, err)
	assert.False(t, created)

	latest, err := s.LatestStatic(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "newest", latest[0].Slug)
	assert.Equal(t, "middle", latest[1].Slug)
	assert.Equal(t, []string{"t"}, latest[0].Tags)

	all, err := s.LatestStatic(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	exists, err := s.SlugExists(ctx, "middle")
	require.NoError(t, err)
	assert.True(t, exists)

	a, err := s.StaticBySlug(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/old", a.Link)

	_, err = s.StaticBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalFeeds: 1, EnabledFeeds: 1, StaticArticles: 3}, stats)

	require.NoError(t, s.DeleteFeed(ctx, feed.ID))
	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	assert.ErrorIs(t, s.DeleteFeed(ctx, feed.ID), ErrNotFound)
}

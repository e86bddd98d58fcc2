package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/socialfeed/pkg/cache"
	"github.com/umputun/socialfeed/pkg/domain"
)

func TestFetcher_Items(t *testing.T) {
	srv, calls := microblogServer(t, microblogTimeline(17))
	fc := domain.FeedConfig{ID: 1, Source: domain.SourceMicroblog, Username: "someuser"}

	f := NewFetcher(testConfig(srv.URL), cache.NewMemoryStore())
	items, err := f.Items(context.Background(), fc, Options{})
	require.NoError(t, err)
	require.Len(t, items, 17)
	assert.Equal(t, 1, *calls)

	// exactly one item came without media
	withoutImage := 0
	for _, item := range items {
		if len(item.Images) == 0 {
			withoutImage++
		}
	}
	assert.Equal(t, 1, withoutImage)
}

func TestFetcher_CacheHit(t *testing.T) {
	srv, calls := microblogServer(t, microblogTimeline(3))
	fc := domain.FeedConfig{ID: 1, Source: domain.SourceMicroblog, Username: "someuser"}

	f := NewFetcher(testConfig(srv.URL), cache.NewMemoryStore())

	first, err := f.Items(context.Background(), fc, Options{})
	require.NoError(t, err)
	second, err := f.Items(context.Background(), fc, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, *calls, "second fetch served from cache")
	require.Len(t, second, len(first))
	assert.Equal(t, first[0].ID, second[0].ID)

	// cached items round-trip with their raw payload intact
	_, ok := second[0].Extra("created_at")
	assert.True(t, ok)
}

func TestFetcher_NoCache(t *testing.T) {
	srv, calls := microblogServer(t, microblogTimeline(3))
	fc := domain.FeedConfig{ID: 1, Source: domain.SourceMicroblog, Username: "someuser"}

	store := cache.NewMemoryStore()
	f := NewFetcher(testConfig(srv.URL), store)

	_, err := f.Items(context.Background(), fc, Options{NoCache: true})
	require.NoError(t, err)
	_, err = f.Items(context.Background(), fc, Options{NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, *calls, "bypass goes online every time")

	_, ok, err := store.Get(context.Background(), cacheKey(fc, ""))
	require.NoError(t, err)
	assert.False(t, ok, "bypass never populates the shared cache")
}

func TestFetcher_LimitTruncatesReturnOnly(t *testing.T) {
	srv, _ := microblogServer(t, microblogTimeline(10))
	fc := domain.FeedConfig{ID: 1, Source: domain.SourceMicroblog, Username: "someuser"}

	f := NewFetcher(testConfig(srv.URL), cache.NewMemoryStore())

	limited, err := f.Items(context.Background(), fc, Options{Limit: 4})
	require.NoError(t, err)
	assert.Len(t, limited, 4)

	// the cache kept the full list, a later unlimited call sees all items
	full, err := f.Items(context.Background(), fc, Options{})
	require.NoError(t, err)
	assert.Len(t, full, 10)
}

func TestFetcher_SearchKeyedSeparately(t *testing.T) {
	srv, calls := microblogServer(t, microblogTimeline(5))
	fc := domain.FeedConfig{ID: 1, Source: domain.SourceMicroblog, Username: "someuser"}

	f := NewFetcher(testConfig(srv.URL), cache.NewMemoryStore())

	_, err := f.Items(context.Background(), fc, Options{})
	require.NoError(t, err)
	before := *calls

	_, err = f.Items(context.Background(), fc, Options{Query: "post number 3"})
	require.NoError(t, err)
	assert.Greater(t, *calls, before, "a search term does not reuse the plain listing's entry")
}

func TestFetcher_UnsupportedSource(t *testing.T) {
	f := NewFetcher(testConfig("http://localhost"), cache.NewMemoryStore())

	_, err := f.Items(context.Background(), domain.FeedConfig{ID: 1, Source: "ello"}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestFetcher_ConfigErrorSurfaces(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Sources.Microblog.AccessToken = ""
	f := NewFetcher(cfg, cache.NewMemoryStore())

	_, err := f.Items(context.Background(), domain.FeedConfig{ID: 1, Source: domain.SourceMicroblog, Username: "u"}, Options{})
	require.Error(t, err)
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestCacheKey(t *testing.T) {
	fc := domain.FeedConfig{ID: 7, Source: domain.SourceMicroblog}
	assert.Equal(t, "socialfeed:microblog:data:7", cacheKey(fc, ""))
	assert.Equal(t, "socialfeed:microblog:data:7:q-wagtail", cacheKey(fc, "wagtail"))
}

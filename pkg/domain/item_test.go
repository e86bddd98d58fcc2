package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_RoundTrip(t *testing.T) {
	posted := time.Date(2016, 8, 9, 13, 16, 33, 0, time.UTC)
	item := NewItem("757929163650861060", SourceMicroblog, "hello world", &posted,
		map[string]Image{"thumb": {URL: "https://img.example.com/a.jpg:thumb"}},
		map[string]any{"retweet_count": json.Number("3"), "lang": "en"})

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"2016-08-09T13:16:33Z"`, "posted serialized as ISO-8601")

	var restored Item
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, item.ID, restored.ID)
	assert.Equal(t, item.Type, restored.Type)
	assert.Equal(t, item.Text, restored.Text)
	require.NotNil(t, restored.Posted)
	assert.True(t, posted.Equal(*restored.Posted))
	assert.Equal(t, item.Images, restored.Images)

	lang, ok := restored.Extra("lang")
	require.True(t, ok)
	assert.Equal(t, "en", lang)
}

func TestItem_NilPosted(t *testing.T) {
	item := NewItem("1", SourcePhotoShare, "no date", nil, nil, nil)
	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"posted":null`)

	var restored Item
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Nil(t, restored.Posted)
}

func TestItem_Extra(t *testing.T) {
	item := NewItem("1", SourceSocialNetwork, "text", nil, nil,
		map[string]any{"story": "shared a link", "place": nil})

	v, ok := item.Extra("story")
	require.True(t, ok)
	assert.Equal(t, "shared a link", v)

	// null field present in the payload is still found
	v, ok = item.Extra("place")
	assert.True(t, ok)
	assert.Nil(t, v)

	// missing field reported as absent, not as empty value
	_, ok = item.Extra("stroy")
	assert.False(t, ok)
}

func TestModeratedItem_Item(t *testing.T) {
	embedded := time.Date(2016, 8, 9, 13, 16, 33, 0, time.UTC)
	orig := NewItem("42", SourceMicroblog, "approved post", &embedded, nil, map[string]any{"lang": "en"})
	content, err := json.Marshal(orig)
	require.NoError(t, err)

	stored := time.Date(2017, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := ModeratedItem{ConfigID: 1, ExternalID: "42", Posted: stored, Content: string(content)}

	item, err := rec.Item()
	require.NoError(t, err)
	assert.Equal(t, "42", item.ID)
	assert.Equal(t, "approved post", item.Text)
	require.NotNil(t, item.Posted)
	assert.True(t, stored.Equal(*item.Posted), "stored timestamp wins over embedded one")
}

func TestModeratedItem_ItemBadContent(t *testing.T) {
	rec := ModeratedItem{Content: "not json"}
	_, err := rec.Item()
	require.Error(t, err)
}

func TestParseSource(t *testing.T) {
	for _, s := range []string{"microblog", "photoshare", "socialnetwork"} {
		got, err := ParseSource(s)
		require.NoError(t, err)
		assert.Equal(t, Source(s), got)
	}

	_, err := ParseSource("ello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}

func TestStringID(t *testing.T) {
	assert.Equal(t, "123", StringID("123"))
	assert.Equal(t, "757929163650861060", StringID(json.Number("757929163650861060")))
	assert.Equal(t, "42", StringID(float64(42)))
	assert.Equal(t, "7", StringID(int64(7)))
	assert.Equal(t, "", StringID(nil))
}

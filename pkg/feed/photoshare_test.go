package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const photoSharePage = `{
	"items": [
		{
			"id": "1318530510427636062_528817151",
			"created_time": "1471408307",
			"caption": {"text": "sunset at the beach"},
			"images": {
				"thumbnail": {"url": "https://cdn.example.com/t/a.jpg", "width": 150, "height": 150},
				"low_resolution": {"url": "https://cdn.example.com/s/a.jpg", "width": 320, "height": 320},
				"standard_resolution": {"url": "https://cdn.example.com/m/a.jpg", "width": 640, "height": 640}
			}
		},
		{
			"id": "1318530510427636061_528817151",
			"created_time": "1471404000",
			"caption": {"text": "city lights"}
		}
	]
}`

func TestPhotoShareQuery_Load(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(photoSharePage)) //nolint:errcheck
	}))
	defer srv.Close()

	q, err := newPhotoShareQuery(testConfig(srv.URL), srv.Client(), "someuser")
	require.NoError(t, err)

	items, err := q.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "/someuser/media/", gotPath)
}

func TestPhotoShareQuery_MissingItemsPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// well-formed JSON with the expected collection gone
		w.Write([]byte(`{"message": "the API did some drastic changes"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	q, err := newPhotoShareQuery(testConfig(srv.URL), srv.Client(), "someuser")
	require.NoError(t, err)

	_, err = q.Load(context.Background(), nil)
	require.Error(t, err)
	var ferr *FeedError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Error(), "no items could be found")
}

func TestPhotoShareQuery_Pagination(t *testing.T) {
	q := &photoShareQuery{}

	// cursor is exclusive upstream, no off-by-one adjustment for this source
	params := q.NextPageParams(RawItem{"id": "1318530510427636061_528817151"})
	assert.Equal(t, PageParams{"max_id": "1318530510427636061_528817151"}, params)
}

func TestPhotoShareQuery_PostDate(t *testing.T) {
	q := &photoShareQuery{}

	d := q.PostDate(decodeRaw(t, `{"created_time": "1471408307"}`))
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2016, 8, 17, 4, 31, 47, 0, time.UTC), d.UTC())

	// malformed epoch degrades to nil instead of failing the fetch
	assert.Nil(t, q.PostDate(decodeRaw(t, `{"created_time": "not_a_timestamp"}`)))
	assert.Nil(t, q.PostDate(decodeRaw(t, `{}`)))
}

func TestNormalizePhotoShare(t *testing.T) {
	var page struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(photoSharePage), &page))

	item := normalizePhotoShare(decodeRaw(t, string(page.Items[0])))
	assert.Equal(t, "1318530510427636062_528817151", item.ID)
	assert.Equal(t, "sunset at the beach", item.Text)
	require.NotNil(t, item.Posted)

	require.Len(t, item.Images, 3)
	assert.Equal(t, "https://cdn.example.com/t/a.jpg", item.Images["thumb"].URL)
	assert.Equal(t, 150, item.Images["thumb"].Width)
	assert.Equal(t, "https://cdn.example.com/s/a.jpg", item.Images["small"].URL)
	assert.Equal(t, "https://cdn.example.com/m/a.jpg", item.Images["medium"].URL)
	_, ok := item.Images["large"]
	assert.False(t, ok, "size class absent in the source is omitted, not fabricated")
}

func TestNormalizePhotoShare_NoImages(t *testing.T) {
	item := normalizePhotoShare(decodeRaw(t, `{"id": "9", "caption": {"text": "bare"}}`))
	assert.Empty(t, item.Images)
	assert.Nil(t, item.Posted)
	assert.Equal(t, "bare", item.Text)
}

func TestPhotoShareQuery_MatchesSearch(t *testing.T) {
	q := &photoShareQuery{}
	raw := decodeRaw(t, `{"caption": {"text": "Sunset at the Beach"}}`)
	assert.True(t, q.MatchesSearch(raw, "beach"))
	assert.False(t, q.MatchesSearch(raw, "mountain"))
	assert.False(t, q.MatchesSearch(decodeRaw(t, `{"id":"1"}`), "beach"))
}

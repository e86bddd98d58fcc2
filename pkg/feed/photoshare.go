package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/umputun/socialfeed/pkg/config"
	"github.com/umputun/socialfeed/pkg/domain"
)

// photoShareSizes maps the source's resolution names to the canonical size
// classes. A resolution absent from the payload is omitted, never fabricated.
var photoShareSizes = map[string]string{
	"thumbnail":           "thumb",
	"low_resolution":      "small",
	"standard_resolution": "medium",
}

// photoShareQuery pages through a public photo-sharing media endpoint. Pages
// are objects with the item list under the "items" key. No credentials.
type photoShareQuery struct {
	client *http.Client
	cfg    config.PhotoShareConfig
	user   string
}

func newPhotoShareQuery(cfg *config.Config, client *http.Client, username string) (Query, error) {
	return &photoShareQuery{client: client, cfg: cfg.Sources.PhotoShare, user: username}, nil
}

// Load fetches one media page.
func (q *photoShareQuery) Load(ctx context.Context, params PageParams) ([]RawItem, error) {
	endpoint := fmt.Sprintf("%s/%s/media/", q.cfg.BaseURL, url.PathEscape(q.user))
	if len(params) > 0 {
		vals := url.Values{}
		for k, v := range params {
			vals.Set(k, v)
		}
		endpoint += "?" + vals.Encode()
	}

	body, err := fetchJSON(ctx, q.client, domain.SourcePhotoShare, endpoint, nil)
	if err != nil {
		return nil, err
	}

	page, ok := body.(map[string]any)
	if !ok {
		return nil, feedErr(domain.SourcePhotoShare, "response is not an object")
	}
	list, ok := page["items"].([]any)
	if !ok {
		return nil, feedErr(domain.SourcePhotoShare, "no items could be found in the response")
	}
	return rawItems(domain.SourcePhotoShare, list)
}

// MatchesSearch matches the term against the photo caption.
func (q *photoShareQuery) MatchesSearch(raw RawItem, term string) bool {
	return containsFold(photoShareText(raw), term)
}

// NextPageParams asks for media older than the oldest seen id. The cursor is
// exclusive upstream, the id goes out untouched.
func (q *photoShareQuery) NextPageParams(oldest RawItem) PageParams {
	return PageParams{"max_id": itemID(oldest)}
}

// PostDate parses the epoch-string created_time field, nil when malformed.
func (q *photoShareQuery) PostDate(raw RawItem) *time.Time {
	return photoSharePostDate(raw)
}

func photoSharePostDate(raw RawItem) *time.Time {
	s := stringField(raw, "created_time")
	if s == "" {
		return nil
	}
	epoch, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(int64(epoch), 0).UTC()
	return &t
}

func photoShareText(raw RawItem) string {
	if caption := nestedMap(raw, "caption"); caption != nil {
		return domain.StringID(caption["text"])
	}
	return ""
}

// normalizePhotoShare converts a raw media item into the canonical item.
func normalizePhotoShare(raw RawItem) domain.Item {
	var images map[string]domain.Image
	if sizes := nestedMap(raw, "images"); sizes != nil {
		images = make(map[string]domain.Image)
		for srcName, class := range photoShareSizes {
			rendition := nestedMap(sizes, srcName)
			if rendition == nil {
				continue
			}
			images[class] = domain.Image{
				URL:    domain.StringID(rendition["url"]),
				Width:  intField(rendition, "width"),
				Height: intField(rendition, "height"),
			}
		}
		if len(images) == 0 {
			images = nil
		}
	}

	return domain.NewItem(itemID(raw), domain.SourcePhotoShare,
		plainText(photoShareText(raw)), photoSharePostDate(raw), images, raw)
}

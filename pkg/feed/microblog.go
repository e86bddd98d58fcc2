package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/araddon/dateparse"

	"github.com/umputun/socialfeed/pkg/config"
	"github.com/umputun/socialfeed/pkg/domain"
)

// microblogSizes is the fixed vocabulary of image size classes the microblog
// API serves as suffixes of a single media base URL.
var microblogSizes = []string{"thumb", "small", "medium", "large"}

// microblogQuery pages through a microblog user timeline. The timeline comes
// back as a top-level JSON array, newest first.
type microblogQuery struct {
	client *http.Client
	cfg    config.MicroblogConfig
	user   string
}

// newMicroblogQuery creates a per-fetch query, failing fast when the bearer
// token is not configured.
func newMicroblogQuery(cfg *config.Config, client *http.Client, username string) (Query, error) {
	if cfg.Sources.Microblog.AccessToken == "" {
		return nil, &ConfigError{Source: domain.SourceMicroblog, Reason: "access_token is not set"}
	}
	return &microblogQuery{client: client, cfg: cfg.Sources.Microblog, user: username}, nil
}

// Load fetches one timeline page.
func (q *microblogQuery) Load(ctx context.Context, params PageParams) ([]RawItem, error) {
	vals := url.Values{}
	vals.Set("screen_name", q.user)
	vals.Set("count", strconv.Itoa(q.cfg.PageSize))
	vals.Set("trim_user", "true")
	vals.Set("contributor_details", "false")
	if !q.cfg.IncludeReposts {
		vals.Set("include_rts", "false")
	}
	for k, v := range params {
		vals.Set(k, v)
	}

	endpoint := fmt.Sprintf("%s/1.1/statuses/user_timeline.json?%s", q.cfg.BaseURL, vals.Encode())
	header := http.Header{"Authorization": []string{"Bearer " + q.cfg.AccessToken}}

	body, err := fetchJSON(ctx, q.client, domain.SourceMicroblog, endpoint, header)
	if err != nil {
		return nil, err
	}

	list, ok := body.([]any)
	if !ok {
		return nil, feedErr(domain.SourceMicroblog, "response is not a list of posts")
	}
	return rawItems(domain.SourceMicroblog, list)
}

// MatchesSearch matches the term against the post body.
func (q *microblogQuery) MatchesSearch(raw RawItem, term string) bool {
	return containsFold(microblogText(raw), term)
}

// NextPageParams asks for posts up to the oldest seen id. The max_id boundary
// is inclusive upstream, so the id is shifted down by one to drop the post
// already seen. Preserved as-is per source, not unified with the others.
func (q *microblogQuery) NextPageParams(oldest RawItem) PageParams {
	id := itemID(oldest)
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		id = strconv.FormatInt(n-1, 10)
	}
	return PageParams{"max_id": id}
}

// PostDate parses the RFC-2822-like created_at field, nil when unparseable.
func (q *microblogQuery) PostDate(raw RawItem) *time.Time {
	return microblogPostDate(raw)
}

func microblogPostDate(raw RawItem) *time.Time {
	s := stringField(raw, "created_at")
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil
	}
	return &t
}

func microblogText(raw RawItem) string {
	if s := stringField(raw, "full_text"); s != "" {
		return s
	}
	return stringField(raw, "text")
}

// normalizeMicroblog converts a raw timeline post into the canonical item.
func normalizeMicroblog(raw RawItem) domain.Item {
	var images map[string]domain.Image
	if extended := nestedMap(raw, "extended_entities"); extended != nil {
		if media, ok := extended["media"].([]any); ok && len(media) > 0 {
			if first, ok := media[0].(map[string]any); ok {
				if base := domain.StringID(first["media_url_https"]); base != "" {
					images = make(map[string]domain.Image, len(microblogSizes))
					for _, size := range microblogSizes {
						images[size] = domain.Image{URL: base + ":" + size}
					}
				}
			}
		}
	}

	return domain.NewItem(itemID(raw), domain.SourceMicroblog,
		plainText(microblogText(raw)), microblogPostDate(raw), images, raw)
}

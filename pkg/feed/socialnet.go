package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/umputun/socialfeed/pkg/config"
	"github.com/umputun/socialfeed/pkg/domain"
)

// socialNetQuery pages through a social-network graph posts endpoint. Pages
// are objects with the item list under "data" and a server-provided
// continuation cursor under paging.cursors.after, which the query captures
// from each loaded page.
type socialNetQuery struct {
	client *http.Client
	cfg    config.SocialNetworkConfig
	user   string
	token  string
	after  string // continuation cursor from the last loaded page
}

// newSocialNetQuery creates a per-fetch query, failing fast when the client
// credentials are not configured. The app token is "client_id|client_secret".
func newSocialNetQuery(cfg *config.Config, client *http.Client, username string) (Query, error) {
	sc := cfg.Sources.SocialNetwork
	if sc.ClientID == "" || sc.ClientSecret == "" {
		return nil, &ConfigError{Source: domain.SourceSocialNetwork, Reason: "client_id and client_secret are not set"}
	}
	return &socialNetQuery{
		client: client,
		cfg:    sc,
		user:   username,
		token:  sc.ClientID + "|" + sc.ClientSecret,
	}, nil
}

// Load fetches one posts page and remembers its continuation cursor.
func (q *socialNetQuery) Load(ctx context.Context, params PageParams) ([]RawItem, error) {
	vals := url.Values{}
	vals.Set("access_token", q.token)
	vals.Set("fields", strings.Join(q.cfg.Fields, ","))
	for k, v := range params {
		vals.Set(k, v)
	}

	endpoint := fmt.Sprintf("%s/%s/posts?%s", q.cfg.BaseURL, url.PathEscape(q.user), vals.Encode())

	body, err := fetchJSON(ctx, q.client, domain.SourceSocialNetwork, endpoint, nil)
	if err != nil {
		return nil, err
	}

	page, ok := body.(map[string]any)
	if !ok {
		return nil, feedErr(domain.SourceSocialNetwork, "response is not an object")
	}
	list, ok := page["data"].([]any)
	if !ok {
		return nil, feedErr(domain.SourceSocialNetwork, "no data could be found in the response")
	}

	q.after = ""
	if cursors := nestedMap(page, "paging", "cursors"); cursors != nil {
		q.after = domain.StringID(cursors["after"])
	}

	return rawItems(domain.SourceSocialNetwork, list)
}

// MatchesSearch matches the term against message, story and description
// combined, covering every post subtype's text-bearing field.
func (q *socialNetQuery) MatchesSearch(raw RawItem, term string) bool {
	all := strings.Join([]string{
		stringField(raw, "message"),
		stringField(raw, "story"),
		stringField(raw, "description"),
	}, " ")
	return containsFold(all, term)
}

// NextPageParams continues from the cursor the server handed out with the
// last page. An empty cursor reloads the first page, which the engine's
// stall-guard then stops on.
func (q *socialNetQuery) NextPageParams(_ RawItem) PageParams {
	if q.after == "" {
		return PageParams{}
	}
	return PageParams{"after": q.after}
}

// PostDate parses the created_time field, nil when unparseable.
func (q *socialNetQuery) PostDate(raw RawItem) *time.Time {
	return socialNetPostDate(raw)
}

func socialNetPostDate(raw RawItem) *time.Time {
	s := stringField(raw, "created_time")
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil
	}
	return &t
}

// socialNetText distills the display text per post subtype. Each subtype
// carries its text in different fields: photos prefer the description, links
// append the URL to the message when it's not already there, everything else
// falls back to message then story.
func socialNetText(raw RawItem) string {
	defaults := func() string {
		if msg, ok := raw["message"]; ok {
			return domain.StringID(msg)
		}
		return stringField(raw, "story")
	}

	switch stringField(raw, "type") {
	case "photo":
		if desc, ok := raw["description"]; ok {
			return domain.StringID(desc)
		}
		return defaults()
	case "link":
		link := stringField(raw, "link")
		if msg, ok := raw["message"]; ok {
			text := domain.StringID(msg)
			if !strings.Contains(text, link) {
				text += " " + link
			}
			return text
		}
		return link
	default: // status, video, offer, event
		return defaults()
	}
}

// normalizeSocialNet converts a raw graph post into the canonical item.
func normalizeSocialNet(raw RawItem) domain.Item {
	var images map[string]domain.Image
	if pic := stringField(raw, "picture"); pic != "" {
		images = map[string]domain.Image{"thumb": {URL: pic}}
	}

	return domain.NewItem(itemID(raw), domain.SourceSocialNetwork,
		plainText(socialNetText(raw)), socialNetPostDate(raw), images, raw)
}

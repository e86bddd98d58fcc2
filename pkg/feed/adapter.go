package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/socialfeed/pkg/domain"
)

// RawItem is a single post exactly as the source API returned it, decoded
// from JSON but not normalized. Numbers are kept as json.Number so large
// post identifiers survive intact.
type RawItem map[string]any

// PageParams carries the pagination cursor between page requests.
type PageParams map[string]string

// Query runs one fetch operation against a single source API. A query is
// created per fetch and may keep per-fetch pagination state, the engine
// drives it page by page.
type Query interface {
	// Load performs one network call and returns the page's raw items.
	// A missing item path or undecodable body fails with FeedError.
	Load(ctx context.Context, params PageParams) ([]RawItem, error)
	// MatchesSearch reports whether the raw item matches the term,
	// case-insensitive substring over source-specific text fields.
	MatchesSearch(raw RawItem, term string) bool
	// NextPageParams builds the cursor for the page following the one
	// whose oldest raw item is given.
	NextPageParams(oldest RawItem) PageParams
	// PostDate extracts the item's post time, nil when missing or
	// malformed. Lenient on purpose, display is the only consumer.
	PostDate(raw RawItem) *time.Time
}

// Normalizer converts a raw source item into the canonical representation.
type Normalizer func(raw RawItem) domain.Item

// textPolicy strips any markup from post bodies before display
var textPolicy = bluemonday.StrictPolicy()

// plainText strips markup and resolves entities, leaving display-safe text.
func plainText(s string) string {
	return html.UnescapeString(textPolicy.Sanitize(s))
}

// fetchJSON performs one GET against the source API and decodes the body.
// Non-2xx responses and undecodable bodies come back as FeedError.
func fetchJSON(ctx context.Context, client *http.Client, source domain.Source, url string, header http.Header) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, feedErrWrap(source, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, feedErr(source, resp.Status)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, feedErrWrap(source, "decode response", err)
	}
	// drain to let the connection be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	return body, nil
}

// rawItems converts a decoded JSON list into raw items, failing on any
// element that is not an object.
func rawItems(source domain.Source, list []any) ([]RawItem, error) {
	items := make([]RawItem, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			return nil, feedErr(source, "unexpected item shape in response")
		}
		items = append(items, RawItem(m))
	}
	return items, nil
}

// stringField returns the raw item's field coerced to a string.
func stringField(raw RawItem, key string) string {
	return domain.StringID(raw[key])
}

// nestedMap walks a path of object keys, nil when any hop is missing.
func nestedMap(raw map[string]any, path ...string) map[string]any {
	current := raw
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// itemID returns the raw item's external identifier as a string.
func itemID(raw RawItem) string {
	return stringField(raw, "id")
}

// containsFold reports whether s contains term, case-insensitively.
func containsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(term))
}

// intField returns a numeric raw field as int, 0 when absent or non-numeric.
func intField(raw map[string]any, key string) int {
	switch v := raw[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case float64:
		return int(v)
	}
	return 0
}

package feed

import (
	"context"
	"log"
	"time"

	"github.com/umputun/socialfeed/pkg/domain"
)

// Engine walks a source query's pages. Without a search term it stops after
// the first page, unfiltered listing never paginates. With a term it digs
// into history page by page, bounded by the history horizon, upstream
// exhaustion and a stall-guard against non-advancing cursors.
type Engine struct {
	maxHistory time.Duration
	now        func() time.Time
}

// NewEngine creates an engine with the given history horizon.
func NewEngine(maxHistory time.Duration) *Engine {
	return &Engine{maxHistory: maxHistory, now: time.Now}
}

// Fetch runs one fetch operation and returns the accumulated raw items.
// The next-page cursor and the history-bound check both use each page's
// oldest raw item, not the filtered subset.
func (e *Engine) Fetch(ctx context.Context, source domain.Source, q Query, term string) ([]RawItem, error) {
	page, err := q.Load(ctx, nil)
	if err != nil {
		return nil, err
	}

	result := matching(q, page, term)
	if term == "" || len(page) == 0 {
		return result, nil
	}

	oldest := page[len(page)-1]
	for e.moreHistoryAllowed(source, q, oldest) {
		page, err = q.Load(ctx, q.NextPageParams(oldest))
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		next := page[len(page)-1]
		if itemID(next) == itemID(oldest) {
			// non-advancing cursor, treated as exhaustion rather than error
			log.Printf("[WARN] %s pagination for term %q stalled on id %s, stopping", source, term, itemID(next))
			break
		}

		result = append(result, matching(q, page, term)...)
		oldest = next
	}

	return result, nil
}

// moreHistoryAllowed reports whether the oldest item of the last page is
// still within the history horizon. An item without a parseable date stops
// the dig, there is nothing sound to bound the loop on.
func (e *Engine) moreHistoryAllowed(source domain.Source, q Query, oldest RawItem) bool {
	posted := q.PostDate(oldest)
	if posted == nil {
		log.Printf("[DEBUG] %s oldest item %s has no post date, stopping history dig", source, itemID(oldest))
		return false
	}
	return posted.After(e.now().Add(-e.maxHistory))
}

// matching filters a page down to the items matching the term. An empty term
// keeps the whole page.
func matching(q Query, page []RawItem, term string) []RawItem {
	if term == "" {
		return page
	}
	result := make([]RawItem, 0, len(page))
	for _, raw := range page {
		if q.MatchesSearch(raw, term) {
			result = append(result, raw)
		}
	}
	return result
}

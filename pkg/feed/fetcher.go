package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/umputun/socialfeed/pkg/cache"
	"github.com/umputun/socialfeed/pkg/config"
	"github.com/umputun/socialfeed/pkg/domain"
)

// Fetcher retrieves normalized feed items with a read-through cache in front
// of the pagination engine, keeping rate-limited upstream APIs off the hot
// path.
type Fetcher struct {
	cfg    *config.Config
	store  cache.Store
	client *http.Client
	engine *Engine
}

// Options control a single fetch.
type Options struct {
	Limit   int    // truncate the returned slice, 0 means no limit
	Query   string // search term, digs into paginated history when set
	NoCache bool   // bypass the shared cache, never reads from or writes to it
}

// NewFetcher creates a fetcher over the given cache store.
func NewFetcher(cfg *config.Config, store cache.Store) *Fetcher {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &Fetcher{
		cfg:    cfg,
		store:  store,
		client: client,
		engine: NewEngine(cfg.Search.MaxHistory),
	}
}

// Items returns canonical items for the configuration. On a cache hit the
// cached list is returned, on a miss the engine fetches fresh pages, every
// raw item is normalized and the full untruncated list is cached. Truncation
// applies to the returned slice only.
func (f *Fetcher) Items(ctx context.Context, fc domain.FeedConfig, opts Options) ([]domain.Item, error) {
	entry, err := lookup(fc.Source)
	if err != nil {
		return nil, err
	}

	key := cacheKey(fc, opts.Query)
	if !opts.NoCache {
		if items, ok := f.cached(ctx, key); ok {
			log.Printf("[DEBUG] feed data from cache (%s)", key)
			return truncate(items, opts.Limit), nil
		}
	}

	log.Printf("[DEBUG] fetching %s online", fc)
	q, err := entry.newQuery(f.cfg, f.client, fc.Username)
	if err != nil {
		return nil, err
	}

	raw, err := f.engine.Fetch(ctx, fc.Source, q, opts.Query)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(raw))
	for _, r := range raw {
		items = append(items, entry.normalize(r))
	}

	if !opts.NoCache {
		f.cacheStore(ctx, key, items)
	}

	return truncate(items, opts.Limit), nil
}

// cached loads and decodes a cached list, a missing or empty entry is a miss.
func (f *Fetcher) cached(ctx context.Context, key string) ([]domain.Item, bool) {
	data, ok, err := f.store.Get(ctx, key)
	if err != nil {
		log.Printf("[WARN] cache get failed for %s: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var items []domain.Item
	if err := json.Unmarshal(data, &items); err != nil {
		log.Printf("[WARN] cached entry for %s is not decodable: %v", key, err)
		return nil, false
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

// cacheStore saves the full normalized list. A cache failure is logged, it
// never fails the fetch that produced the items.
func (f *Fetcher) cacheStore(ctx context.Context, key string, items []domain.Item) {
	data, err := json.Marshal(items)
	if err != nil {
		log.Printf("[WARN] can't encode items for cache %s: %v", key, err)
		return
	}
	log.Printf("[DEBUG] storing feed data in cache (%s)", key)
	if err := f.store.Set(ctx, key, data, f.cfg.Cache.Duration); err != nil {
		log.Printf("[WARN] cache set failed for %s: %v", key, err)
	}
}

// cacheKey builds the shared cache key, search results are keyed separately.
func cacheKey(fc domain.FeedConfig, term string) string {
	key := fmt.Sprintf("socialfeed:%s:data:%d", fc.Source, fc.ID)
	if term != "" {
		key += ":q-" + term
	}
	return key
}

func truncate(items []domain.Item, limit int) []domain.Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

package feed

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/umputun/socialfeed/pkg/domain"
)

// ModerationStore is the subset of the moderated item repository the facade
// consults for moderated configurations.
type ModerationStore interface {
	List(ctx context.Context, configID int64, limit int) ([]domain.ModeratedItem, error)
}

// Service is the top-level entry point. A moderated configuration serves only
// operator-approved items from the moderation store, anything else goes
// through the cached live fetch.
type Service struct {
	fetcher   *Fetcher
	moderated ModerationStore
}

// NewService creates the feed facade.
func NewService(fetcher *Fetcher, moderated ModerationStore) *Service {
	return &Service{fetcher: fetcher, moderated: moderated}
}

// Feed returns the public items for one configuration.
func (s *Service) Feed(ctx context.Context, fc domain.FeedConfig, limit int) ([]domain.Item, error) {
	if !fc.Moderated {
		return s.fetcher.Items(ctx, fc, Options{Limit: limit})
	}

	records, err := s.moderated.List(ctx, fc.ID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(records))
	for _, rec := range records {
		item, err := rec.Item()
		if err != nil {
			log.Printf("[WARN] skipping undecodable moderated item %s of config %d: %v", rec.ExternalID, fc.ID, err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Live fetches items directly for one configuration, with search and cache
// bypass under the caller's control. Used by the moderation workflow for
// previewing posts.
func (s *Service) Live(ctx context.Context, fc domain.FeedConfig, opts Options) ([]domain.Item, error) {
	return s.fetcher.Items(ctx, fc, opts)
}

// Merge combines feeds of multiple configurations into one list sorted by
// posted time, newest first. Each configuration is fetched to completion
// before the next, per-config moderation applies before merging and the limit
// applies to the merged result.
func (s *Service) Merge(ctx context.Context, configs []domain.FeedConfig, limit int) ([]domain.Item, error) {
	var all []domain.Item
	for _, fc := range configs {
		items, err := s.Feed(ctx, fc, 0)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return postedTime(all[i]).After(postedTime(all[j]))
	})

	return truncate(all, limit), nil
}

// postedTime treats a missing timestamp as the zero time, pushing dateless
// items to the end of a descending merge.
func postedTime(item domain.Item) time.Time {
	if item.Posted == nil {
		return time.Time{}
	}
	return *item.Posted
}

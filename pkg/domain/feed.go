package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// FeedConfig describes a tracked account on one of the sources. Created and
// edited by an operator, read-only to the fetching engine.
type FeedConfig struct {
	ID        int64
	Source    Source
	Username  string
	Moderated bool // when set, public display requires explicit approval
	CreatedAt time.Time
}

// String returns a human-readable config description for logs.
func (c FeedConfig) String() string {
	return fmt.Sprintf("%s (@%s)", c.Source, c.Username)
}

// ModeratedItem is an operator-approved post, stored with the serialized
// original content. At most one record exists per (config, external id).
type ModeratedItem struct {
	ID         int64
	ConfigID   int64
	ExternalID string
	Posted     time.Time
	Content    string // serialized canonical item
	CreatedAt  time.Time
}

// Item reconstructs the canonical item from the stored content. The record's
// stored timestamp is authoritative and overrides the embedded one.
func (m ModeratedItem) Item() (Item, error) {
	var it Item
	if err := json.Unmarshal([]byte(m.Content), &it); err != nil {
		return Item{}, fmt.Errorf("decode moderated content: %w", err)
	}
	posted := m.Posted
	it.Posted = &posted
	return it, nil
}

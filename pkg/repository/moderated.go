package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/umputun/socialfeed/pkg/domain"
)

// ModeratedItemRepository handles operator-approved posts.
type ModeratedItemRepository struct {
	db *sqlx.DB
}

// moderatedItemSQL represents a moderated item for SQL operations
type moderatedItemSQL struct {
	ID         int64     `db:"id"`
	ConfigID   int64     `db:"config_id"`
	ExternalID string    `db:"external_id"`
	Posted     time.Time `db:"posted"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}

// NewModeratedItemRepository creates a new moderated item repository.
func NewModeratedItemRepository(database *sqlx.DB) *ModeratedItemRepository {
	return &ModeratedItemRepository{db: database}
}

// GetOrCreateFor stores an approval for the serialized item, or returns the
// existing record. Idempotent per (config, external id) — the second call
// with the same item reports created=false and creates nothing.
func (r *ModeratedItemRepository) GetOrCreateFor(ctx context.Context, configID int64, serialized string) (rec domain.ModeratedItem, created bool, err error) {
	var probe struct {
		ID     string     `json:"id"`
		Posted *time.Time `json:"posted"`
	}
	if err := json.Unmarshal([]byte(serialized), &probe); err != nil {
		return domain.ModeratedItem{}, false, fmt.Errorf("parse original post: %w", err)
	}
	if probe.ID == "" {
		return domain.ModeratedItem{}, false, fmt.Errorf("original post has no id")
	}
	if probe.Posted == nil {
		return domain.ModeratedItem{}, false, fmt.Errorf("original post has no posted time")
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err = retrier.Do(ctx, func() error {
		result, err := r.db.ExecContext(ctx,
			`INSERT INTO moderated_items (config_id, external_id, posted, content)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (config_id, external_id) DO NOTHING`,
			configID, probe.ID, probe.Posted.UTC(), serialized)
		if err != nil {
			return fmt.Errorf("upsert moderated item: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get affected rows: %w", err)
		}
		created = affected > 0
		return nil
	})
	if err != nil {
		return domain.ModeratedItem{}, false, err
	}

	rec, err = r.Get(ctx, configID, probe.ID)
	if err != nil {
		return domain.ModeratedItem{}, false, err
	}
	return rec, created, nil
}

// Get retrieves one approval by external id.
func (r *ModeratedItemRepository) Get(ctx context.Context, configID int64, externalID string) (domain.ModeratedItem, error) {
	var row moderatedItemSQL
	err := r.db.GetContext(ctx, &row,
		"SELECT * FROM moderated_items WHERE config_id = ? AND external_id = ?", configID, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ModeratedItem{}, fmt.Errorf("moderated item %s: %w", externalID, ErrNotFound)
	}
	if err != nil {
		return domain.ModeratedItem{}, fmt.Errorf("get moderated item: %w", err)
	}
	return toDomainModerated(row), nil
}

// List retrieves approvals for a configuration ordered by posted descending.
func (r *ModeratedItemRepository) List(ctx context.Context, configID int64, limit int) ([]domain.ModeratedItem, error) {
	query := "SELECT * FROM moderated_items WHERE config_id = ? ORDER BY posted DESC"
	args := []any{configID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []moderatedItemSQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list moderated items: %w", err)
	}

	items := make([]domain.ModeratedItem, len(rows))
	for i, row := range rows {
		items[i] = toDomainModerated(row)
	}
	return items, nil
}

// ExternalIDs returns the approved external ids of a configuration, used to
// flag already-allowed posts in the moderation queue.
func (r *ModeratedItemRepository) ExternalIDs(ctx context.Context, configID int64) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		"SELECT external_id FROM moderated_items WHERE config_id = ?", configID)
	if err != nil {
		return nil, fmt.Errorf("list moderated ids: %w", err)
	}
	return ids, nil
}

// Delete removes an approval, taking the post off the public feed.
func (r *ModeratedItemRepository) Delete(ctx context.Context, configID int64, externalID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM moderated_items WHERE config_id = ? AND external_id = ?", configID, externalID)
	if err != nil {
		return fmt.Errorf("delete moderated item: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("moderated item %s: %w", externalID, ErrNotFound)
	}
	return nil
}

func toDomainModerated(row moderatedItemSQL) domain.ModeratedItem {
	return domain.ModeratedItem{
		ID:         row.ID,
		ConfigID:   row.ConfigID,
		ExternalID: row.ExternalID,
		Posted:     row.Posted,
		Content:    row.Content,
		CreatedAt:  row.CreatedAt,
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/socialfeed/pkg/domain"
)

// ErrNotFound reported when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// FeedConfigRepository handles feed configuration records.
type FeedConfigRepository struct {
	db *sqlx.DB
}

// feedConfigSQL represents a feed configuration for SQL operations
type feedConfigSQL struct {
	ID        int64     `db:"id"`
	Source    string    `db:"source"`
	Username  string    `db:"username"`
	Moderated bool      `db:"moderated"`
	CreatedAt time.Time `db:"created_at"`
}

// NewFeedConfigRepository creates a new feed configuration repository.
func NewFeedConfigRepository(database *sqlx.DB) *FeedConfigRepository {
	return &FeedConfigRepository{db: database}
}

// Create inserts a new configuration and sets its ID.
func (r *FeedConfigRepository) Create(ctx context.Context, fc *domain.FeedConfig) error {
	if _, err := domain.ParseSource(string(fc.Source)); err != nil {
		return fmt.Errorf("create config: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO feed_configs (source, username, moderated) VALUES (?, ?, ?)",
		string(fc.Source), fc.Username, fc.Moderated)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get insert id: %w", err)
	}
	fc.ID = id
	return nil
}

// Get retrieves a configuration by ID.
func (r *FeedConfigRepository) Get(ctx context.Context, id int64) (domain.FeedConfig, error) {
	var row feedConfigSQL
	err := r.db.GetContext(ctx, &row, "SELECT * FROM feed_configs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FeedConfig{}, fmt.Errorf("config %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.FeedConfig{}, fmt.Errorf("get config: %w", err)
	}
	return toDomainConfig(row), nil
}

// List retrieves all configurations, oldest first.
func (r *FeedConfigRepository) List(ctx context.Context) ([]domain.FeedConfig, error) {
	var rows []feedConfigSQL
	if err := r.db.SelectContext(ctx, &rows, "SELECT * FROM feed_configs ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}

	configs := make([]domain.FeedConfig, len(rows))
	for i, row := range rows {
		configs[i] = toDomainConfig(row)
	}
	return configs, nil
}

// SetModerated flips the moderation flag of a configuration.
func (r *FeedConfigRepository) SetModerated(ctx context.Context, id int64, moderated bool) error {
	result, err := r.db.ExecContext(ctx, "UPDATE feed_configs SET moderated = ? WHERE id = ?", moderated, id)
	if err != nil {
		return fmt.Errorf("set moderated: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("config %d: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a configuration and, via cascade, its moderated items.
func (r *FeedConfigRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM feed_configs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("config %d: %w", id, ErrNotFound)
	}
	return nil
}

func toDomainConfig(row feedConfigSQL) domain.FeedConfig {
	return domain.FeedConfig{
		ID:        row.ID,
		Source:    domain.Source(row.Source),
		Username:  row.Username,
		Moderated: row.Moderated,
		CreatedAt: row.CreatedAt,
	}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"newswatch/internal/model"
	"newswatch/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Store backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateFeed inserts a new subscription and populates its ID and CreatedAt.
func (s *SQLite) CreateFeed(ctx context.Context, feed *model.FeedSource) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feeds (name, url, max_entries, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		feed.Name, feed.URL, feed.MaxEntries, boolToInt(feed.IsActive), now,
	)
	if err != nil {
		return fmt.Errorf("insert feed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	feed.ID = id
	feed.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetFeed returns a single subscription by its ID.
func (s *SQLite) GetFeed(ctx context.Context, id int64) (*model.FeedSource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, max_entries, is_active, created_at
		 FROM feeds WHERE id = ?`, id,
	)
	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return feed, err
}

// ListFeeds returns all subscriptions ordered by ID.
func (s *SQLite) ListFeeds(ctx context.Context) ([]model.FeedSource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, max_entries, is_active, created_at
		 FROM feeds ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanFeeds(rows)
}

// ListActiveFeeds returns the subscriptions that take part in fetch cycles.
func (s *SQLite) ListActiveFeeds(ctx context.Context) ([]model.FeedSource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, max_entries, is_active, created_at
		 FROM feeds WHERE is_active = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active feeds: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanFeeds(rows)
}

// SetFeedActive enables or disables a subscription.
func (s *SQLite) SetFeedActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE feeds SET is_active = ? WHERE id = ?`,
		boolToInt(active), id,
	)
	if err != nil {
		return fmt.Errorf("update feed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFeed removes a subscription.
func (s *SQLite) DeleteFeed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFeed(row scannable) (*model.FeedSource, error) {
	var f model.FeedSource
	var isActive int
	var created sql.NullString
	err := row.Scan(&f.ID, &f.Name, &f.URL, &f.MaxEntries, &isActive, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan feed: %w", err)
	}
	f.IsActive = isActive == 1
	if created.Valid {
		f.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &f, nil
}

func scanFeeds(rows *sql.Rows) ([]model.FeedSource, error) {
	var feeds []model.FeedSource
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *f)
	}
	return feeds, rows.Err()
}

// Package store defines the subscription persistence interface and its
// implementations.
package store

import (
	"context"
	"errors"

	"newswatch/internal/model"
)

// ErrNotFound is returned when the requested feed does not exist.
var ErrNotFound = errors.New("feed not found")

// Store is the interface for all persistence operations.
type Store interface {
	CreateFeed(ctx context.Context, feed *model.FeedSource) error
	GetFeed(ctx context.Context, id int64) (*model.FeedSource, error)
	ListFeeds(ctx context.Context) ([]model.FeedSource, error)
	ListActiveFeeds(ctx context.Context) ([]model.FeedSource, error)
	SetFeedActive(ctx context.Context, id int64, active bool) error
	DeleteFeed(ctx context.Context, id int64) error

	Close() error
}

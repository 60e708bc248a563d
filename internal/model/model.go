// Package model defines the domain types used across the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Article is a single normalized feed entry. Articles are immutable once
// built; every consumer works on copies.
type Article struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	ImageURL  string     `json:"image_url"`
	FeedName  string     `json:"feed_name"`
	Summary   string     `json:"summary,omitempty"`
	Published *time.Time `json:"published,omitempty"`
}

// ArticleID returns the identity hash for an article. Identity is derived
// from title and feed name only, so the same story republished under a new
// timestamp or link keeps its ID, while the same headline from two feeds
// gets two IDs.
func ArticleID(title, feedName string) string {
	h := sha256.Sum256([]byte(title + feedName))
	return fmt.Sprintf("%x", h[:16])
}

// FeedSource is a feed subscription. Sources are loaded once at startup and
// never change for the lifetime of the process.
type FeedSource struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	MaxEntries int       `json:"max_entries"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

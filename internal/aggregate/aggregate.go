// Package aggregate fetches all subscribed feeds and merges them into one
// ordered article list.
package aggregate

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"newswatch/internal/model"
	"newswatch/internal/normalize"
)

const maxConcurrentFetches = 5

// Fetcher retrieves and parses a single feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// Aggregator holds the subscribed sources and the most recent merged result.
// The cached result survives rounds in which every source fails, so readers
// always see the last good aggregation.
type Aggregator struct {
	fetcher Fetcher
	sources []model.FeedSource
	log     *slog.Logger

	mu     sync.RWMutex
	cached []model.Article
}

func New(fetcher Fetcher, sources []model.FeedSource, log *slog.Logger) *Aggregator {
	owned := make([]model.FeedSource, len(sources))
	copy(owned, sources)
	return &Aggregator{fetcher: fetcher, sources: owned, log: log}
}

// Refresh fetches every source and rebuilds the merged list, newest first.
// A failing source is logged and skipped; it never aborts the round. When no
// source yields entries the previous aggregation is kept and fresh is false.
func (a *Aggregator) Refresh(ctx context.Context) (articles []model.Article, fresh bool) {
	results := make([][]model.Article, len(a.sources))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, src := range a.sources {
		i, src := i, src // per-iteration copies; required while go.mod targets go < 1.22
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			feed, err := a.fetcher.Fetch(ctx, src.URL)
			if err != nil {
				a.log.Error("fetch feed", "feed", src.Name, "url", src.URL, "error", err)
				return nil
			}
			results[i] = a.convert(feed, src)
			return nil
		})
	}
	_ = g.Wait()

	var merged []model.Article
	for _, r := range results {
		merged = append(merged, r...)
	}
	if len(merged) == 0 {
		return a.Current(), false
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return publishedTime(merged[i]).After(publishedTime(merged[j]))
	})

	a.mu.Lock()
	a.cached = merged
	a.mu.Unlock()

	out := make([]model.Article, len(merged))
	copy(out, merged)
	return out, true
}

func (a *Aggregator) convert(feed *gofeed.Feed, src model.FeedSource) []model.Article {
	items := feed.Items
	if src.MaxEntries > 0 && len(items) > src.MaxEntries {
		items = items[:src.MaxEntries]
	}
	articles := make([]model.Article, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		articles = append(articles, normalize.Entry(item, src.Name))
	}
	return articles
}

// Current returns a copy of the most recent aggregation.
func (a *Aggregator) Current() []model.Article {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.Article, len(a.cached))
	copy(out, a.cached)
	return out
}

// publishedTime orders undated articles last.
func publishedTime(a model.Article) time.Time {
	if a.Published == nil {
		return time.Time{}
	}
	return *a.Published
}

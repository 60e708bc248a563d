// Package coordinator owns the session state of the news pipeline: the seen
// set, the bounded notification queue, the presentation slot, the high-water
// mark, and the playback index. Every mutation funnels through one mutex so
// fetch cycles, dismiss events, and playback commands never race each other.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"newswatch/internal/model"
	"newswatch/internal/notify"
	"newswatch/internal/schedule"
)

const (
	// maxQueueSize bounds the backlog of not-yet-presented articles. A full
	// queue drops new candidates instead of evicting queued ones.
	maxQueueSize = 10
	// seenLimit bounds the dedup set; the oldest IDs are evicted first.
	seenLimit = 1024
	// drainDelay separates a dismissal from the next queued presentation.
	drainDelay = 3 * time.Second

	articleNoteID = "newswatch.article"
	summaryNoteID = "newswatch.summary"

	articleTitle = "News"
	summaryTitle = "New articles"
)

// Aggregator supplies merged feed results.
type Aggregator interface {
	Refresh(ctx context.Context) (articles []model.Article, fresh bool)
	Current() []model.Article
}

// Coordinator runs fetch cycles and drives notifications. A nil channel
// disables the notification pass; fetching and playback still work.
type Coordinator struct {
	agg     Aggregator
	gate    *schedule.Gate
	channel notify.Channel
	log     *slog.Logger

	delay time.Duration
	now   func() time.Time

	cycleMu sync.Mutex // one fetch cycle at a time; forced cycles queue behind it

	mu         sync.Mutex // guards everything below
	seen       *seenSet
	queue      []model.Article
	lastShown  *time.Time
	active     bool
	index      int
	drainTimer *time.Timer
	closed     bool
}

func New(agg Aggregator, gate *schedule.Gate, channel notify.Channel, log *slog.Logger) *Coordinator {
	return &Coordinator{
		agg:     agg,
		gate:    gate,
		channel: channel,
		log:     log,
		delay:   drainDelay,
		now:     time.Now,
		seen:    newSeenSet(seenLimit),
	}
}

// Run executes an immediate fetch cycle and then one per interval until ctx
// is cancelled.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	c.RunCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunCycle(ctx)
		}
	}
}

// RunCycle performs one fetch cycle: quiet-window check, refresh, and the
// notification pass. A skipped cycle leaves all state untouched, including
// the playback index. A stale cycle (no feed produced entries) keeps the
// previous result and suppresses notifications.
func (c *Coordinator) RunCycle(ctx context.Context) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	if !c.gate.Allowed() {
		c.log.Debug("fetch skipped inside quiet window")
		return
	}

	previous := c.agg.Current()
	articles, fresh := c.agg.Refresh(ctx)
	c.gate.Consume()

	if !fresh {
		c.log.Warn("no feed produced entries, keeping previous result", "cached", len(articles))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if fresh && len(articles) > 0 && c.channel != nil {
		c.notifyLocked(ctx, previous, articles)
	}
	c.index = 0
}

// ForceRefresh arms the quiet-window override and runs a cycle immediately.
func (c *Coordinator) ForceRefresh(ctx context.Context) {
	c.gate.Force()
	c.RunCycle(ctx)
}

// notifyLocked decides what this cycle tells the user. A per-feed summary is
// sent when the diff against the previous result found new articles; it
// occupies the slot, and queued articles drain after its dismissal. The very
// first result of a session presents only its newest article.
func (c *Coordinator) notifyLocked(ctx context.Context, previous, articles []model.Article) {
	counts := countNew(previous, articles)
	if len(counts) > 0 {
		c.presentSummaryLocked(ctx, counts)
	}

	if c.lastShown == nil && len(counts) == 0 {
		c.presentLocked(ctx, articles[0], true)
		return
	}

	c.enqueueLocked(articles)
	if len(counts) == 0 {
		c.drainLocked(ctx)
	}
}

type feedCount struct {
	feed  string
	count int
}

// countNew diffs article IDs against the previous result, counting per feed
// in order of first appearance. An empty previous result yields nothing so
// the first fetch of a session is not reported as one giant batch.
func countNew(previous, articles []model.Article) []feedCount {
	if len(previous) == 0 {
		return nil
	}
	prevIDs := make(map[string]struct{}, len(previous))
	for _, a := range previous {
		prevIDs[a.ID] = struct{}{}
	}

	var counts []feedCount
	pos := make(map[string]int)
	for _, a := range articles {
		if _, ok := prevIDs[a.ID]; ok {
			continue
		}
		if i, ok := pos[a.FeedName]; ok {
			counts[i].count++
			continue
		}
		pos[a.FeedName] = len(counts)
		counts = append(counts, feedCount{feed: a.FeedName, count: 1})
	}
	return counts
}

func (c *Coordinator) presentSummaryLocked(ctx context.Context, counts []feedCount) {
	if !c.channel.Available() {
		c.log.Warn("notification channel unavailable, summary not sent")
		return
	}

	lines := make([]string, len(counts))
	for i, fc := range counts {
		lines[i] = fmt.Sprintf("%s: %d new articles", fc.feed, fc.count)
	}

	err := c.channel.Present(ctx, notify.Notification{
		ID:      summaryNoteID,
		Title:   summaryTitle,
		Message: strings.Join(lines, "\n"),
	})
	if err != nil {
		c.log.Error("present summary", "error", err)
		return
	}
	c.active = true
}

// enqueueLocked adds candidates to the backlog: unseen, dated, strictly
// newer than the high-water mark, and not already queued. Enqueueing stops
// once the queue is full.
func (c *Coordinator) enqueueLocked(articles []model.Article) {
	for _, a := range articles {
		if len(c.queue) >= maxQueueSize {
			return
		}
		if c.seen.Has(a.ID) {
			continue
		}
		if a.Published == nil {
			continue
		}
		if c.lastShown != nil && !a.Published.After(*c.lastShown) {
			continue
		}
		if c.queuedLocked(a.ID) {
			continue
		}
		c.queue = append(c.queue, a)
	}
}

func (c *Coordinator) queuedLocked(id string) bool {
	for _, q := range c.queue {
		if q.ID == id {
			return true
		}
	}
	return false
}

// drainLocked pops the oldest queued article and attempts to present it. A
// guard failure inside presentLocked drops the article from the queue but
// leaves it unseen, so a later fetch cycle can queue it again.
func (c *Coordinator) drainLocked(ctx context.Context) {
	if c.active || len(c.queue) == 0 {
		return
	}
	next := c.queue[0]
	c.queue = c.queue[1:]
	c.presentLocked(ctx, next, len(c.queue) == 0)
}

// presentLocked shows one article through the channel. Every guard fails
// without side effects: an article that was not actually shown is not marked
// seen and the high-water mark does not move.
func (c *Coordinator) presentLocked(ctx context.Context, article model.Article, isLast bool) {
	if c.channel == nil || c.active {
		return
	}
	if c.seen.Has(article.ID) {
		return
	}
	if !c.channel.Available() {
		c.log.Warn("notification channel unavailable", "feed", article.FeedName)
		return
	}

	err := c.channel.Present(ctx, notify.Notification{
		ID:      articleNoteID,
		Title:   articleTitle,
		Message: composeMessage(article, isLast),
	})
	if err != nil {
		c.log.Error("present article", "feed", article.FeedName, "error", err)
		return
	}

	c.seen.Add(article.ID)
	shown := c.now()
	if article.Published != nil {
		shown = *article.Published
	}
	c.lastShown = &shown
	c.active = true
}

func composeMessage(article model.Article, isLast bool) string {
	var b strings.Builder
	b.WriteString(article.FeedName)
	b.WriteString(" | ")
	if article.Published != nil {
		b.WriteString(article.Published.Format("15:04"))
		b.WriteString(" – ")
	}
	b.WriteString(article.Title)
	if isLast {
		b.WriteString("\n\nLast message")
	}
	return b.String()
}

// HandleDismiss reacts to a dismissal from the notification channel. IDs
// that are not this session's article or summary notification are ignored.
// A recognized dismissal frees the slot and schedules a drain attempt after
// a short delay; a second dismissal before the delay elapses rearms the
// timer instead of stacking another attempt.
func (c *Coordinator) HandleDismiss(notificationID string) {
	if notificationID != articleNoteID && notificationID != summaryNoteID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.active = false

	if c.drainTimer != nil {
		c.drainTimer.Stop()
	}
	c.drainTimer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		c.drainLocked(context.Background())
	})
}

// Close stops the pending drain timer. The coordinator must not be used
// afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.drainTimer != nil {
		c.drainTimer.Stop()
		c.drainTimer = nil
	}
}

// Articles returns the current aggregation.
func (c *Coordinator) Articles() []model.Article {
	return c.agg.Current()
}

// Unseen returns the articles of the current aggregation that have not been
// presented this session.
func (c *Coordinator) Unseen() []model.Article {
	articles := c.agg.Current()

	c.mu.Lock()
	defer c.mu.Unlock()
	unseen := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if !c.seen.Has(a.ID) {
			unseen = append(unseen, a)
		}
	}
	return unseen
}

// CurrentArticle returns the article at the playback position.
func (c *Coordinator) CurrentArticle() (model.Article, bool) {
	articles := c.agg.Current()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(articles) == 0 {
		return model.Article{}, false
	}
	idx := c.index
	if idx >= len(articles) {
		idx = 0
	}
	return articles[idx], true
}

// Index returns the playback position.
func (c *Coordinator) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// IndexNext advances the playback position, wrapping at the end. No-op when
// the aggregation is empty.
func (c *Coordinator) IndexNext() {
	n := len(c.agg.Current())

	c.mu.Lock()
	defer c.mu.Unlock()
	if n == 0 {
		return
	}
	c.index = (c.index + 1) % n
}

// IndexPrevious moves the playback position back, wrapping at the start.
func (c *Coordinator) IndexPrevious() {
	n := len(c.agg.Current())

	c.mu.Lock()
	defer c.mu.Unlock()
	if n == 0 {
		return
	}
	c.index = (c.index - 1 + n) % n
}

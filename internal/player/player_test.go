package player

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"newswatch/internal/model"
)

type stubController struct {
	mu       sync.Mutex
	articles []model.Article
	index    int
}

func (s *stubController) Articles() []model.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Article(nil), s.articles...)
}

func (s *stubController) IndexNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.articles) == 0 {
		return
	}
	s.index = (s.index + 1) % len(s.articles)
}

func (s *stubController) IndexPrevious() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.articles) == 0 {
		return
	}
	s.index = (s.index - 1 + len(s.articles)) % len(s.articles)
}

func (s *stubController) current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func threeArticles() []model.Article {
	return []model.Article{
		{ID: "a", Title: "first"},
		{ID: "b", Title: "second"},
		{ID: "c", Title: "third"},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestPlayRotates(t *testing.T) {
	ctrl := &stubController{articles: threeArticles()}
	p := New(ctrl, 5*time.Millisecond, discardLogger())
	defer p.Stop()

	p.Play()
	if got := p.State(); got != StatePlaying {
		t.Fatalf("State = %q after Play, want %q", got, StatePlaying)
	}

	waitFor(t, func() bool { return ctrl.current() >= 1 })
}

func TestStopHaltsRotation(t *testing.T) {
	ctrl := &stubController{articles: threeArticles()}
	p := New(ctrl, 5*time.Millisecond, discardLogger())

	p.Play()
	waitFor(t, func() bool { return ctrl.current() >= 1 })
	p.Stop()

	if got := p.State(); got != StatePaused {
		t.Fatalf("State = %q after Stop, want %q", got, StatePaused)
	}
	// Let a tick already in flight land before recording the position.
	time.Sleep(10 * time.Millisecond)
	at := ctrl.current()
	time.Sleep(30 * time.Millisecond)
	if got := ctrl.current(); got != at {
		t.Errorf("position moved after Stop: %d -> %d", at, got)
	}
}

func TestPauseHoldsPosition(t *testing.T) {
	ctrl := &stubController{articles: threeArticles()}
	p := New(ctrl, 5*time.Millisecond, discardLogger())

	p.Play()
	waitFor(t, func() bool { return ctrl.current() >= 1 })
	p.Pause()

	time.Sleep(10 * time.Millisecond)
	at := ctrl.current()
	time.Sleep(30 * time.Millisecond)
	if got := ctrl.current(); got != at {
		t.Errorf("position moved after Pause: %d -> %d", at, got)
	}
}

func TestManualSteps(t *testing.T) {
	ctrl := &stubController{articles: threeArticles()}
	p := New(ctrl, time.Minute, discardLogger())
	defer p.Stop()

	p.Next()
	if got := ctrl.current(); got != 1 {
		t.Errorf("position = %d after Next, want 1", got)
	}
	if got := p.State(); got != StatePlaying {
		t.Errorf("State = %q after Next, want %q", got, StatePlaying)
	}

	p.Previous()
	p.Previous()
	if got := ctrl.current(); got != 2 {
		t.Errorf("position = %d after two Previous, want 2 (wrapped)", got)
	}
}

func TestEmptyAggregationIsIdle(t *testing.T) {
	ctrl := &stubController{}
	p := New(ctrl, 5*time.Millisecond, discardLogger())

	if got := p.State(); got != StateIdle {
		t.Fatalf("State = %q, want %q", got, StateIdle)
	}

	p.Play()
	p.Next()
	p.Previous()

	if got := p.State(); got != StateIdle {
		t.Errorf("State = %q after commands on empty aggregation, want %q", got, StateIdle)
	}
	if got := ctrl.current(); got != 0 {
		t.Errorf("position = %d, want 0", got)
	}
}

func TestPlayWhilePlayingIsNoOp(t *testing.T) {
	ctrl := &stubController{articles: threeArticles()}
	p := New(ctrl, 5*time.Millisecond, discardLogger())
	defer p.Stop()

	p.Play()
	p.Play()

	if got := p.State(); got != StatePlaying {
		t.Errorf("State = %q, want %q", got, StatePlaying)
	}
}

func TestPlayAfterStopRestarts(t *testing.T) {
	ctrl := &stubController{articles: threeArticles()}
	p := New(ctrl, 5*time.Millisecond, discardLogger())
	defer p.Stop()

	p.Play()
	waitFor(t, func() bool { return ctrl.current() >= 1 })
	p.Stop()

	at := ctrl.current()
	p.Play()
	waitFor(t, func() bool { return ctrl.current() != at })
}

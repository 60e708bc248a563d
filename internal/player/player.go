// Package player is a playback view over the aggregated article list: a
// position that can be stepped manually or rotated on a timer.
package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newswatch/internal/model"
)

// State describes the playback view.
type State string

const (
	// StateIdle means there is no aggregation to play.
	StateIdle State = "idle"
	// StatePlaying means the position rotates automatically.
	StatePlaying State = "playing"
	// StatePaused means the position holds until the next command.
	StatePaused State = "paused"
)

// Controller is the playback surface of the coordinator.
type Controller interface {
	Articles() []model.Article
	IndexNext()
	IndexPrevious()
}

// Player rotates the playback position at a fixed interval while playing.
// Manual steps work in any state and mark the player as playing.
type Player struct {
	ctrl     Controller
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	playing bool
	cancel  context.CancelFunc
}

func New(ctrl Controller, interval time.Duration, log *slog.Logger) *Player {
	return &Player{ctrl: ctrl, interval: interval, log: log}
}

// Play starts the rotation loop. It is a no-op while already playing or when
// there is nothing to play. The loop runs until Pause, Stop or process exit.
func (p *Player) Play() {
	if len(p.ctrl.Articles()) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.playing = true
	p.log.Debug("playback started", "interval", p.interval)
	go p.loop(loopCtx)
}

func (p *Player) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		playing := p.playing
		p.mu.Unlock()
		if !playing {
			return
		}
		p.ctrl.IndexNext()
	}
}

// Pause holds the current position.
func (p *Player) Pause() {
	p.halt()
}

// Stop ends playback.
func (p *Player) Stop() {
	p.halt()
}

func (p *Player) halt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Next steps the position forward immediately.
func (p *Player) Next() {
	if len(p.ctrl.Articles()) == 0 {
		return
	}
	p.ctrl.IndexNext()
	p.mu.Lock()
	p.playing = true
	p.mu.Unlock()
}

// Previous steps the position back immediately.
func (p *Player) Previous() {
	if len(p.ctrl.Articles()) == 0 {
		return
	}
	p.ctrl.IndexPrevious()
	p.mu.Lock()
	p.playing = true
	p.mu.Unlock()
}

// State reports the playback state.
func (p *Player) State() State {
	if len(p.ctrl.Articles()) == 0 {
		return StateIdle
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return StatePlaying
	}
	return StatePaused
}

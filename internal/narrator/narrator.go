// Package narrator turns the aggregated article list into a spoken-style
// bulletin: short chunks of plain text delivered one at a time through a
// Speaker, with a pause between stories scaled to how much was just said.
package narrator

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"newswatch/internal/model"
)

const (
	// maxTitleLen and maxSummaryLen cap how much of each field is spoken.
	maxTitleLen   = 180
	maxSummaryLen = 220
	// maxChunkLen keeps each Speak call short enough for speech synthesis.
	maxChunkLen = 200
	// spokenCharsPerSecond stretches the pause after long stories.
	spokenCharsPerSecond = 15
)

var wordRe = regexp.MustCompile(`\S+\s*`)

// Speaker delivers one chunk of narration text.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Narrator struct {
	speaker        Speaker
	pause          time.Duration
	pauseScale     time.Duration
	includeSummary bool
	log            *slog.Logger
}

func New(speaker Speaker, pause time.Duration, includeSummary bool, log *slog.Logger) *Narrator {
	return &Narrator{
		speaker:        speaker,
		pause:          pause,
		pauseScale:     time.Second,
		includeSummary: includeSummary,
		log:            log,
	}
}

// Narrate speaks the articles in order and blocks until the bulletin ends or
// ctx is cancelled. A chunk that fails to speak is logged and skipped; the
// bulletin carries on.
func (n *Narrator) Narrate(ctx context.Context, articles []model.Article) error {
	for i, article := range articles {
		if err := ctx.Err(); err != nil {
			return err
		}

		text := n.storyText(article, position(i, len(articles)))
		chunks := SplitText(text, maxChunkLen)

		spoken := 0
		for _, chunk := range chunks {
			if err := n.speaker.Speak(ctx, chunk); err != nil {
				n.log.Error("speak chunk", "feed", article.FeedName, "error", err)
				continue
			}
			spoken += len(chunk)
		}

		if i == len(articles)-1 {
			break
		}
		pause := n.pause + time.Duration(spoken/spokenCharsPerSecond)*n.pauseScale
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
	return nil
}

func position(i, total int) string {
	switch {
	case i == 0:
		return "First story"
	case i == total-1:
		return "Last story"
	default:
		return "Next story"
	}
}

func (n *Narrator) storyText(article model.Article, prefix string) string {
	feed := html.UnescapeString(article.FeedName)
	title := truncate(html.UnescapeString(article.Title), maxTitleLen)

	text := fmt.Sprintf("%s. %s. %s.", prefix, feed, title)
	if n.includeSummary && article.Summary != "" {
		text += " Summary: " + truncate(html.UnescapeString(article.Summary), maxSummaryLen)
	}
	return text
}

// SplitText breaks text into chunks of at most maxLen characters without
// splitting words. A single word longer than maxLen becomes its own chunk.
func SplitText(text string, maxLen int) []string {
	var chunks []string
	current := ""
	for _, word := range wordRe.FindAllString(text, -1) {
		if len(current)+len(word) > maxLen && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			current = word
			continue
		}
		current += word
	}
	if trimmed := strings.TrimSpace(current); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}

// truncate cuts s to max runes at a word boundary and marks the cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

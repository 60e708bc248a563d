// Package notify defines the outbound notification port.
package notify

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Present when the channel cannot deliver
// right now.
var ErrUnavailable = errors.New("notification channel unavailable")

// Notification is one message for the single presentation slot. Presenting
// an ID that is already on screen replaces that message instead of stacking
// a new one.
type Notification struct {
	ID      string
	Title   string
	Message string
}

// Channel delivers notifications to the user-facing surface.
type Channel interface {
	// Available reports whether the channel can deliver right now.
	Available() bool
	// Present shows the notification, replacing any earlier one with the
	// same ID.
	Present(ctx context.Context, n Notification) error
}

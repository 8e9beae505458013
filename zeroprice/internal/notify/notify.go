// Package notify tells a human about newly found zero-price listings.
package notify

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/solarwatch/listing"
)

// Notifier delivers one batch of new entries. Implementations do nothing
// for an empty batch.
type Notifier interface {
	Notify(ctx context.Context, entries []listing.Entry) error
}

// Multi fans a batch out to every notifier. One failure does not block
// the others: errors are logged and the first is returned.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMulti creates a fan-out notifier. Nil notifiers are ignored.
func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Multi{logger: logger}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Len reports how many notifiers are attached.
func (m *Multi) Len() int { return len(m.notifiers) }

func (m *Multi) Notify(ctx context.Context, entries []listing.Entry) error {
	var firstErr error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, entries); err != nil {
			m.logger.Warn("notify: delivery failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

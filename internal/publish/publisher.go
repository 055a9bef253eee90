// Package publish emits crawl-event notifications to interested consumers.
package publish

import "context"

// Publisher delivers one event payload. Implementations must be safe for
// use from the crawl session's single background worker.
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]any) error
	Close() error
}

// Noop discards all events. Used when no queue is configured.
type Noop struct{}

// Publish discards the event.
func (Noop) Publish(context.Context, string, map[string]any) error { return nil }

// Close is a no-op.
func (Noop) Close() error { return nil }

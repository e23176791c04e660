// Package eventstream publishes document lifecycle events to an external
// stream. Publishing is best effort: callers log failures and carry on.
package eventstream

import "context"

// Publisher publishes document events to an event stream backend.
type Publisher interface {
	PublishDocument(ctx context.Context, event *DocumentEvent) error
	Close() error
}

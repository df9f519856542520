package domain

import "context"

// TokenBus carries the process-wide, fire-and-forget "tokens updated" signal.
// Anything that refreshes a credential out-of-band publishes; the session
// controller only subscribes. Subscribe returns a receive channel and a
// deregistration func; implementations drop events for slow subscribers
// rather than block the publisher.
type TokenBus interface {
	Publish(ctx context.Context) error
	Subscribe(ctx context.Context) (<-chan struct{}, func())
}

// VisibilitySource emits an event whenever the host surface transitions from
// hidden to visible. Same subscription contract as TokenBus.
type VisibilitySource interface {
	Subscribe(ctx context.Context) (<-chan struct{}, func())
}

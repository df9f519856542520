package bus

import (
	"context"
	"sync"

	"github.com/shreyansh232/plandrift/internal/metrics"
)

// Memory is an in-process domain.TokenBus. Publishing never blocks: slow
// subscribers miss events instead of stalling the publisher.
type Memory struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[int]chan struct{})}
}

func (b *Memory) Publish(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	metrics.BusPublishesTotal.WithLabelValues("memory").Inc()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
			metrics.BusEventsReceivedTotal.WithLabelValues("memory").Inc()
		default:
			// Subscriber still has an undelivered event; one pending
			// notification is enough to trigger a reconcile.
		}
	}
	return nil
}

func (b *Memory) Subscribe(_ context.Context) (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan struct{}, 1)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
	return ch, cancel
}

package bus

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shreyansh232/plandrift/internal/metrics"
)

const tokensUpdatedChannel = "plandrift:tokens-updated"

// Redis is a domain.TokenBus backed by Redis pub/sub, for deployments where
// several local processes share one credential file and each needs to see
// refreshes performed by the others.
type Redis struct {
	rdb *goredis.Client
}

func NewRedis(rdb *goredis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (b *Redis) Publish(ctx context.Context) error {
	if err := b.rdb.Publish(ctx, tokensUpdatedChannel, "refreshed").Err(); err != nil {
		return fmt.Errorf("failed to publish tokens-updated: %w", err)
	}
	metrics.BusPublishesTotal.WithLabelValues("redis").Inc()
	return nil
}

func (b *Redis) Subscribe(ctx context.Context) (<-chan struct{}, func()) {
	sub := b.rdb.Subscribe(ctx, tokensUpdatedChannel)

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				metrics.BusEventsReceivedTotal.WithLabelValues("redis").Inc()
				slog.DebugContext(subCtx, "Tokens-updated event received via Redis", "payload", msg.Payload)
				select {
				case ch <- struct{}{}:
				default:
					// One pending notification is enough.
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	return ch, func() {
		cancel()
		_ = sub.Close()
	}
}

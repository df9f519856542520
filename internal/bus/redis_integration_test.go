package bus

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	testRedisURL string
	redContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	redContainer, err = tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redContainer.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	defer func() {
		if err := redContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
		}
	}()
	os.Exit(m.Run())
}

func setupTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	opts, err := goredis.ParseURL(testRedisURL)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}
	client := goredis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestRedis_PublishReachesSubscriber(t *testing.T) {
	client := setupTestClient(t)
	b := NewRedis(client)

	ctx := context.Background()
	events, cancel := b.Subscribe(ctx)
	defer cancel()

	// Pub/sub delivery only covers subscribers that are already attached,
	// so give the subscription a moment to register before publishing.
	time.Sleep(100 * time.Millisecond)

	if err := b.Publish(ctx); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a tokens-updated event")
	}
}

func TestRedis_CrossInstanceDelivery(t *testing.T) {
	client := setupTestClient(t)
	publisher := NewRedis(client)
	subscriber := NewRedis(client)

	ctx := context.Background()
	events, cancel := subscriber.Subscribe(ctx)
	defer cancel()

	time.Sleep(100 * time.Millisecond)

	if err := publisher.Publish(ctx); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("expected the event to cross bus instances")
	}
}

func TestRedis_CancelStopsDelivery(t *testing.T) {
	client := setupTestClient(t)
	b := NewRedis(client)

	ctx := context.Background()
	events, cancel := b.Subscribe(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()

	if err := b.Publish(ctx); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("cancelled subscriber must not receive events")
		}
	case <-time.After(2 * time.Second):
		// Channel close may race the publish; silence is also fine.
	}
}

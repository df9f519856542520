// Command sessiond keeps a locally cached snapshot of the authenticated
// PlanDrift user in sync with the remote identity API and serves it to UI
// surfaces over HTTP and WebSocket.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shreyansh232/plandrift/internal/bus"
	"github.com/shreyansh232/plandrift/internal/credentials"
	"github.com/shreyansh232/plandrift/internal/crypto"
	"github.com/shreyansh232/plandrift/internal/domain"
	"github.com/shreyansh232/plandrift/internal/httpserver"
	"github.com/shreyansh232/plandrift/internal/identity"
	"github.com/shreyansh232/plandrift/internal/platform/config"
	"github.com/shreyansh232/plandrift/internal/platform/logging"
	"github.com/shreyansh232/plandrift/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)

	cipher, err := buildCipher(cfg)
	if err != nil {
		slog.Error("Failed to initialize credential encryption", "error", err)
		os.Exit(1)
	}

	store, err := credentials.NewStore(cfg.CredentialsFile, cipher)
	if err != nil {
		slog.Error("Failed to open credential store", "error", err, "path", cfg.CredentialsFile)
		os.Exit(1)
	}

	tokenBus, healthChecks, err := buildBus(cfg)
	if err != nil {
		slog.Error("Failed to initialize token bus", "error", err)
		os.Exit(1)
	}

	identityClient := identity.NewClient(cfg.IdentityBaseURL, store, tokenBus)

	hub := httpserver.NewHub(cfg.MaxUIClients)

	controller := session.NewController(store, identityClient, tokenBus, hub,
		session.WithHeartbeatInterval(cfg.HeartbeatInterval))

	handle := controller.Activate(context.Background())
	defer handle.Close()

	srv := httpserver.NewServer(cfg, controller, hub, healthChecks)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		slog.Error("Server stopped unexpectedly", "error", err)
	}

	handle.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

func buildCipher(cfg *config.Config) (crypto.Service, error) {
	if cfg.TokenEncryptionKey == "" {
		slog.Warn("TOKEN_ENCRYPTION_KEY not set, storing credentials unencrypted")
		return crypto.NoopService{}, nil
	}
	return crypto.NewAESGCMService(cfg.TokenEncryptionKey)
}

// buildBus picks the Redis-backed bus when REDIS_URL is configured, so
// sibling processes sharing the credential file see token refreshes too.
// Otherwise the broadcast stays in-process.
func buildBus(cfg *config.Config) (domain.TokenBus, []httpserver.HealthCheck, error) {
	if cfg.RedisURL == "" {
		return bus.NewMemory(), nil, nil
	}

	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := goredis.NewClient(opts)

	check := httpserver.HealthCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	return bus.NewRedis(rdb), []httpserver.HealthCheck{check}, nil
}

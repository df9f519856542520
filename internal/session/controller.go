// Package session implements the session sync controller: it keeps a cached
// snapshot of the authenticated user consistent with the remote identity
// provider across activation, visibility changes, external token refreshes,
// and a periodic heartbeat, with at most one network resolution in flight.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/shreyansh232/plandrift/internal/domain"
	"github.com/shreyansh232/plandrift/internal/metrics"
	"github.com/shreyansh232/plandrift/internal/platform/correlation"
)

// DefaultHeartbeatInterval is the policy default between heartbeat reconciles.
const DefaultHeartbeatInterval = 10 * time.Minute

// Trigger identifies which event source requested a reconcile.
type Trigger string

const (
	TriggerActivate      Trigger = "activate"
	TriggerVisibility    Trigger = "visibility"
	TriggerTokensUpdated Trigger = "tokens_updated"
	TriggerHeartbeat     Trigger = "heartbeat"
	TriggerManual        Trigger = "manual"
)

// Controller maintains the session snapshot as an eventually consistent
// mirror of remote authentication state. All four trigger sources funnel into
// Reconcile, which drops (never queues) triggers that arrive while a
// resolution is already in flight.
type Controller struct {
	credentials domain.CredentialStore
	identity    domain.IdentityClient
	bus         domain.TokenBus
	visibility  domain.VisibilitySource
	clock       clockwork.Clock
	interval    time.Duration

	inFlight atomic.Bool

	mu       sync.RWMutex
	snapshot domain.Snapshot

	watchMu   sync.Mutex
	watchers  map[int]chan domain.Snapshot
	nextWatch int

	activeMu sync.Mutex
	stop     chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock substitutes the wall clock, letting tests drive the heartbeat
// with a fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithHeartbeatInterval overrides the heartbeat period.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(c *Controller) { c.interval = interval }
}

func NewController(credentials domain.CredentialStore, identity domain.IdentityClient, bus domain.TokenBus, visibility domain.VisibilitySource, opts ...Option) *Controller {
	c := &Controller{
		credentials: credentials,
		identity:    identity,
		bus:         bus,
		visibility:  visibility,
		clock:       clockwork.NewRealClock(),
		interval:    DefaultHeartbeatInterval,
		snapshot:    domain.Snapshot{State: domain.StateLoading},
		watchers:    make(map[int]chan domain.Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current snapshot.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Handle deactivates the controller when closed. Close is idempotent.
type Handle struct {
	once sync.Once
	c    *Controller
}

func (h *Handle) Close() {
	h.once.Do(h.c.Deactivate)
}

// Activate wires the four trigger sources (immediate, visibility, token bus,
// heartbeat) into Reconcile and returns a Handle whose Close tears them all
// down again. The controller must be deactivated before a second Activate.
func (c *Controller) Activate(ctx context.Context) *Handle {
	c.activeMu.Lock()
	defer c.activeMu.Unlock()

	if c.stop != nil {
		slog.Warn("Session controller already active, ignoring Activate")
		return &Handle{c: c}
	}

	stop := make(chan struct{})
	c.stop = stop

	busCh, busCancel := c.bus.Subscribe(ctx)
	visCh, visCancel := c.visibility.Subscribe(ctx)

	go c.run(ctx, stop, busCh, visCh, busCancel, visCancel)

	return &Handle{c: c}
}

// Deactivate deregisters all triggers. Safe to call multiple times and
// without a prior Activate. It does not abort a reconcile already in flight;
// that reconcile completes and writes its result.
func (c *Controller) Deactivate() {
	c.activeMu.Lock()
	defer c.activeMu.Unlock()

	if c.stop == nil {
		return
	}
	close(c.stop)
	c.stop = nil
}

func (c *Controller) run(ctx context.Context, stop <-chan struct{}, busCh, visCh <-chan struct{}, busCancel, visCancel func()) {
	defer busCancel()
	defer visCancel()

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	go c.Reconcile(ctx, TriggerActivate)

	for {
		select {
		case <-stop:
			slog.Debug("Session controller deactivated")
			return
		case <-ctx.Done():
			return
		case <-visCh:
			go c.Reconcile(ctx, TriggerVisibility)
		case <-busCh:
			go c.Reconcile(ctx, TriggerTokensUpdated)
		case <-ticker.Chan():
			metrics.HeartbeatTicksTotal.Inc()
			go c.Reconcile(ctx, TriggerHeartbeat)
		}
	}
}

// Reconcile re-derives the snapshot from local and remote truth. If another
// reconcile is already in flight the call is a coalescing drop: it returns
// immediately without queueing a retry. A completed reconcile never leaves
// the snapshot in StateLoading.
func (c *Controller) Reconcile(ctx context.Context, trigger Trigger) {
	if !c.inFlight.CompareAndSwap(false, true) {
		metrics.ReconcilesCoalescedTotal.WithLabelValues(string(trigger)).Inc()
		return
	}
	defer c.inFlight.Store(false)

	start := time.Now()
	defer func() { metrics.ReconcileDuration.Observe(time.Since(start).Seconds()) }()

	ctx = correlation.WithID(ctx, correlation.NewID())

	if !c.credentials.HasCredential() {
		c.setSnapshot(domain.Snapshot{State: domain.StateUnauthenticated})
		metrics.ReconcilesTotal.WithLabelValues(string(trigger), "no_credential").Inc()
		return
	}

	profile, err := c.identity.FetchProfile(ctx)
	if err != nil {
		// The fetch already retried a silent refresh internally; if it still
		// failed, the session is treated as ended.
		slog.WarnContext(ctx, "Profile fetch failed, treating session as ended", "trigger", trigger, "error", err)
		c.setSnapshot(domain.Snapshot{State: domain.StateUnauthenticated})
		metrics.ReconcilesTotal.WithLabelValues(string(trigger), "fetch_failed").Inc()
		return
	}

	c.setSnapshot(domain.Snapshot{State: domain.StateAuthenticated, Profile: profile})
	metrics.ReconcilesTotal.WithLabelValues(string(trigger), "ok").Inc()
	slog.DebugContext(ctx, "Session reconciled", "trigger", trigger, "user_id", profile.ID)
}

// SignOut calls the logout collaborator and moves the snapshot to
// unauthenticated regardless of the collaborator's outcome: local state, not
// remote confirmation, is authoritative for the UI.
func (c *Controller) SignOut(ctx context.Context) {
	if err := c.identity.Logout(ctx); err != nil {
		slog.WarnContext(ctx, "Logout call failed, signing out locally anyway", "error", err)
	}
	c.setSnapshot(domain.Snapshot{State: domain.StateUnauthenticated})
	metrics.SignOutsTotal.Inc()
}

// Watch returns a channel receiving every snapshot written after the call,
// plus a deregistration func. Slow receivers miss intermediate snapshots; a
// fresh Snapshot() read always returns the latest.
func (c *Controller) Watch() (<-chan domain.Snapshot, func()) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()

	id := c.nextWatch
	c.nextWatch++
	ch := make(chan domain.Snapshot, 16)
	c.watchers[id] = ch

	cancel := func() {
		c.watchMu.Lock()
		defer c.watchMu.Unlock()
		delete(c.watchers, id)
	}
	return ch, cancel
}

func (c *Controller) setSnapshot(snapshot domain.Snapshot) {
	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	metrics.SnapshotState.Set(float64(snapshot.State))

	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	for _, ch := range c.watchers {
		select {
		case ch <- snapshot:
		default:
			// Receiver is behind; it can catch up via Snapshot().
		}
	}
}

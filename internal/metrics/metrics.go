// Package metrics defines the Prometheus instrumentation for the daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session reconciliation metrics
var (
	// ReconcilesTotal tracks completed reconcile attempts by trigger and outcome
	ReconcilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_reconciles_total",
			Help: "Completed session reconcile attempts by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	// ReconcilesCoalescedTotal tracks triggers dropped because a reconcile was already in flight
	ReconcilesCoalescedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_reconciles_coalesced_total",
			Help: "Reconcile triggers dropped by the single-flight guard",
		},
		[]string{"trigger"},
	)

	// ReconcileDuration tracks how long a non-coalesced reconcile takes
	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "session_reconcile_duration_seconds",
			Help:    "Duration of completed reconcile attempts in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// HeartbeatTicksTotal tracks heartbeat timer fires
	HeartbeatTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_heartbeat_ticks_total",
			Help: "Total heartbeat timer fires",
		},
	)

	// SignOutsTotal tracks explicit sign-out requests
	SignOutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_sign_outs_total",
			Help: "Total explicit sign-out requests",
		},
	)

	// SnapshotState reports the current snapshot state (0=loading, 1=authenticated, 2=unauthenticated)
	SnapshotState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_snapshot_state",
			Help: "Current snapshot state (0=loading, 1=authenticated, 2=unauthenticated)",
		},
	)
)

// Identity client metrics
var (
	// TokenRefreshesTotal tracks silent token refresh attempts by status
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_token_refreshes_total",
			Help: "Silent token refresh attempts by status",
		},
		[]string{"status"},
	)

	// ProfileFetchesTotal tracks profile fetches by status
	ProfileFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_profile_fetches_total",
			Help: "Profile fetch calls against the identity API by status",
		},
		[]string{"status"},
	)
)

// Token bus metrics
var (
	// BusPublishesTotal tracks tokens-updated events published by bus kind
	BusPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_bus_publishes_total",
			Help: "Tokens-updated events published by bus kind",
		},
		[]string{"bus"},
	)

	// BusEventsReceivedTotal tracks tokens-updated events delivered to subscribers
	BusEventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_bus_events_received_total",
			Help: "Tokens-updated events delivered to subscribers by bus kind",
		},
		[]string{"bus"},
	)
)

// Presentation metrics
var (
	// UIClientsConnected tracks currently attached UI clients
	UIClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ui_clients_connected",
			Help: "Currently attached UI WebSocket clients",
		},
	)
)

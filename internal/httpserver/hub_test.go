package httpserver

import (
	"context"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_FirstAttachEmitsVisibility(t *testing.T) {
	hub := NewHub(4)

	events, cancel := hub.Subscribe(context.Background())
	defer cancel()

	first := &websocket.Conn{}
	require.NoError(t, hub.register(first))

	select {
	case <-events:
	default:
		t.Fatal("first attach should emit a visibility event")
	}

	// A second client while the surface is already visible is silent.
	second := &websocket.Conn{}
	require.NoError(t, hub.register(second))
	select {
	case <-events:
		t.Fatal("second attach must not emit a visibility event")
	default:
	}

	// Draining to zero and attaching again emits a fresh event.
	hub.unregister(first)
	hub.unregister(second)
	require.NoError(t, hub.register(first))
	select {
	case <-events:
	default:
		t.Fatal("re-attach after empty should emit a visibility event")
	}
}

func TestHub_EnforcesMaxClients(t *testing.T) {
	hub := NewHub(1)

	require.NoError(t, hub.register(&websocket.Conn{}))
	assert.Error(t, hub.register(&websocket.Conn{}))
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_UnregisterUnknownConnIsNoop(t *testing.T) {
	hub := NewHub(4)

	hub.unregister(&websocket.Conn{})
	assert.Equal(t, 0, hub.ClientCount())
}

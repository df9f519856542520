package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/shreyansh232/plandrift/internal/metrics"
)

// Hub tracks attached UI clients. It doubles as the domain.VisibilitySource:
// the surface counts as "visible" while at least one UI client is attached,
// so the first attach after an empty stretch emits a visibility event.
type Hub struct {
	maxClients int

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	visSubs map[int]chan struct{}
	nextVis int
}

func NewHub(maxClients int) *Hub {
	return &Hub{
		maxClients: maxClients,
		clients:    make(map[*websocket.Conn]struct{}),
		visSubs:    make(map[int]chan struct{}),
	}
}

// Subscribe implements domain.VisibilitySource.
func (h *Hub) Subscribe(_ context.Context) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextVis
	h.nextVis++
	ch := make(chan struct{}, 1)
	h.visSubs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.visSubs, id)
	}
	return ch, cancel
}

// ClientCount returns the number of attached UI clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= h.maxClients {
		return fmt.Errorf("max UI clients (%d) reached", h.maxClients)
	}

	wasEmpty := len(h.clients) == 0
	h.clients[conn] = struct{}{}
	metrics.UIClientsConnected.Set(float64(len(h.clients)))

	if wasEmpty {
		for _, ch := range h.visSubs {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
	return nil
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, conn)
	metrics.UIClientsConnected.Set(float64(len(h.clients)))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The daemon only listens on loopback; cross-origin browsers are fine.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

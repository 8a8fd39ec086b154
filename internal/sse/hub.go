package sse

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Hub fans messages out to the SSE clients subscribed to one topic
type Hub struct {
	topic   string
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// pending counts clients handed to register that Run has not recorded yet
	pending int

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a new Hub for a topic
func NewHub(topic string, logger *slog.Logger) *Hub {
	return &Hub{
		topic:      topic,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("topic", topic)),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("sse hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.pending {
				client.pending = false
				h.pending--
			}
			if h.isClosed() {
				h.mu.Unlock()
				close(client.send)
				continue
			}
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("sse client registered",
				slog.String("subscriber", client.subscriber),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("sse client unregistered",
					slog.String("subscriber", client.subscriber),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			dropped := 0
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					dropped++
				}
			}
			total := len(h.clients)
			h.mu.RUnlock()
			if dropped > 0 {
				h.logger.Warn("sse broadcast partial failure - client buffers full",
					slog.Int("sent", total-dropped),
					slog.Int("dropped", dropped))
			}

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("sse hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// Register adds a client to the hub. It returns false if the hub has
// already been closed.
func (h *Hub) Register(client *Client) bool {
	if h.isClosed() {
		return false
	}
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends a message to all clients
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("sse broadcast dropped - hub buffer full")
	}
}

// BroadcastEvent sends an SSE event with a name and data
func (h *Hub) BroadcastEvent(eventName, data string) {
	h.Broadcast(formatSSEMessage(eventName, data))
}

// Close shuts down the hub
func (h *Hub) Close() {
	close(h.done)
}

func (h *Hub) isClosed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// idle reports whether the hub has no clients, counting those still joining
func (h *Hub) idle() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) == 0 && h.pending == 0
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteString("\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, dropping carriage returns
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// HubManager owns one hub per topic
type HubManager struct {
	hubs   map[string]*Hub
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[string]*Hub),
		logger: logger.With(slog.String("component", "sse")),
	}
}

// GetOrCreateHub returns the hub for a topic, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(topic string) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hubLocked(topic)
}

func (m *HubManager) hubLocked(topic string) *Hub {
	if hub, ok := m.hubs[topic]; ok {
		return hub
	}

	hub := NewHub(topic, m.logger)
	m.hubs[topic] = hub
	go hub.Run()
	return hub
}

// Subscribe registers a new client on the topic's hub. Lookup and
// registration happen under the manager lock and the client counts towards
// the hub until Run records it, so cleanup never closes a hub someone is
// joining. It returns false once the manager has been closed.
func (m *HubManager) Subscribe(topic, subscriber string) (*Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false
	}

	hub := m.hubLocked(topic)
	client := NewClient(hub, subscriber)
	client.pending = true

	hub.mu.Lock()
	hub.pending++
	hub.mu.Unlock()

	if !hub.Register(client) {
		hub.mu.Lock()
		if client.pending {
			client.pending = false
			hub.pending--
		}
		hub.mu.Unlock()
		return nil, false
	}
	return client, true
}

// GetHub returns the hub for a topic, or nil if nobody has subscribed
func (m *HubManager) GetHub(topic string) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[topic]
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[topic]; ok {
		hub.Close()
		delete(m.hubs, topic)
	}
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for topic, hub := range m.hubs {
		if hub.idle() {
			hub.Close()
			delete(m.hubs, topic)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug("sse empty hubs cleaned up", slog.Int("removed", removed))
	}
}

// RunCleanup periodically removes empty hubs until ctx is cancelled
func (m *HubManager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupEmptyHubs()
		case <-ctx.Done():
			return
		}
	}
}

// Close shuts down every hub, disconnecting all clients
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for topic, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, topic)
	}
}

package sse

import (
	"net/http"
	"time"
)

const (
	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

// Client represents a connected SSE subscriber
type Client struct {
	hub         *Hub
	subscriber  string
	send        chan []byte
	connectedAt time.Time

	// pending is set while a Subscribe registration is in flight; guarded by hub.mu
	pending bool
}

// NewClient creates a new SSE client. The subscriber label is only used for logging.
func NewClient(hub *Hub, subscriber string) *Client {
	return &Client{
		hub:         hub,
		subscriber:  subscriber,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE subscribes to topic and streams its messages to the response until
// the client disconnects or the hub shuts down
func ServeSSE(w http.ResponseWriter, r *http.Request, hubs *HubManager, topic, subscriber string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	client, ok := hubs.Subscribe(topic, subscriber)
	if !ok {
		http.Error(w, "Stream unavailable", http.StatusServiceUnavailable)
		return
	}
	hub := client.hub
	defer hub.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(formatSSEMessage("connected", `{"topic":"`+hub.topic+`"}`))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

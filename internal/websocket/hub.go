package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"qajalicense/internal/infrastructure"
	"qajalicense/internal/license"
)

const (
	// TypeConnection is sent to a client once it is registered
	TypeConnection = "connection"

	broadcastQueueSize = 256
)

// Envelope is the JSON frame sent to clients
type Envelope struct {
	Type      string                 `json:"type"`
	Key       string                 `json:"key,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp string                 `json:"timestamp"`
	TraceID   string                 `json:"trace_id,omitempty"`
}

type outbound struct {
	eventType string
	payload   []byte
}

// Hub maintains the set of active clients and broadcasts events to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	logger  *slog.Logger
	metrics *OTelMetrics

	totalConnections int64
	messagesSent     int64
	droppedMessages  int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithOTelMetrics records hub activity on m
func WithOTelMetrics(m *OTelMetrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// NewHub creates a hub. Call Start before publishing.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start runs the hub loop in a goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.metrics.recordConnection(ctx)
			h.logger.Info("client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			h.greet(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.mu.Unlock()

				h.metrics.recordDisconnection(ctx, time.Since(client.connectedAt), "closed")
				h.logger.Info("client unregistered",
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			} else {
				h.mu.Unlock()
			}

		case msg := <-h.broadcast:
			h.deliver(ctx, msg)
		}
	}
}

func (h *Hub) greet(client *Client) {
	frame, err := json.Marshal(Envelope{
		Type:      TypeConnection,
		Data:      map[string]interface{}{"status": "connected", "client_id": client.id},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- frame:
	default:
		h.logger.Warn("client buffer full on connect", slog.String("client_id", client.id))
	}
}

// deliver sends under the lock so Stop cannot close a channel mid-send
func (h *Hub) deliver(ctx context.Context, msg outbound) {
	h.mu.Lock()
	sent := 0
	var slow []*Client
	for client := range h.clients {
		select {
		case client.send <- msg.payload:
			sent++
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		delete(h.clients, client)
		close(client.send)
	}
	h.messagesSent += int64(sent)
	h.mu.Unlock()

	h.metrics.recordSent(ctx, msg.eventType, sent)
	for _, client := range slow {
		h.metrics.recordDisconnection(ctx, time.Since(client.connectedAt), "slow_consumer")
		h.logger.Warn("client send buffer full, disconnecting", slog.String("client_id", client.id))
	}
}

// Publish implements license.EventPublisher. It never blocks.
func (h *Hub) Publish(ctx context.Context, event license.Event) {
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	payload, err := json.Marshal(Envelope{
		Type:      string(event.Type),
		Key:       event.Key,
		Data:      event.Data,
		Timestamp: at.UTC().Format(time.RFC3339),
		TraceID:   infrastructure.GetTraceID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode event",
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- outbound{eventType: string(event.Type), payload: payload}:
	default:
		h.mu.Lock()
		h.droppedMessages++
		h.mu.Unlock()
		h.metrics.recordDropped(ctx, "queue_full")
		h.logger.WarnContext(ctx, "event queue full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// GetHubMetrics returns current hub counters
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"dropped_messages":  h.droppedMessages,
		"queued_messages":   len(h.broadcast),
	}
}

// Stop halts the hub loop and disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.logger.Info("hub stopped")
}

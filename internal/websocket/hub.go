package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"dpt/internal/infrastructure"
	"dpt/internal/operations"
)

// TypeConnection is sent to a client once it is registered.
const TypeConnection = "connection"

// broadcastBuffer is how many messages may queue before Broadcast drops.
const broadcastBuffer = 256

// Message is the envelope every client receives.
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	logger      *slog.Logger
	connections metric.Int64UpDownCounter
	dropped     metric.Int64Counter
}

// NewHub creates a hub. Start must be called before clients connect.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.Meter(infrastructure.MeterName)
	connections, _ := meter.Int64UpDownCounter("dpt_websocket_connections",
		metric.WithDescription("Connected websocket clients"))
	dropped, _ := meter.Int64Counter("dpt_websocket_messages_dropped_total",
		metric.WithDescription("Messages not delivered because a buffer was full"))

	return &Hub{
		clients:     make(map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan []byte, broadcastBuffer),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		logger:      infrastructure.WithComponent(logger, "websocket.hub"),
		connections: connections,
		dropped:     dropped,
	}
}

// Start runs the hub loop in a new goroutine. It is a no-op once started.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop disconnects every client and ends the hub loop.
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
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.connections.Add(ctx, 1)

			h.logger.Info("client registered",
				slog.String("client_id", c.id),
				slog.String("remote_addr", c.remoteAddr),
				slog.Int("total_clients", count))

			if msg, err := encode(TypeConnection, map[string]string{"status": "connected", "client_id": c.id}, c.traceID); err == nil {
				c.send <- msg
			}

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c]
			if ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if !ok {
				continue
			}
			h.connections.Add(ctx, -1)

			h.logger.Info("client unregistered",
				slog.String("client_id", c.id),
				slog.Int("total_clients", count),
				slog.Duration("connection_duration", time.Since(c.connectedAt)))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// A client that cannot keep up is disconnected.
					close(c.send)
					delete(h.clients, c)
					h.connections.Add(ctx, -1)
					h.dropped.Add(ctx, 1)
					h.logger.Warn("client send buffer full, disconnecting",
						slog.String("client_id", c.id))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues msg for every client. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(context.Background(), 1)
		h.logger.Warn("broadcast queue full, message dropped", slog.Int("size", len(msg)))
	}
}

// Notify broadcasts an operation event. Hub satisfies operations.Observer.
func (h *Hub) Notify(ctx context.Context, ev operations.Event) {
	msg, err := encode(ev.Type, ev, infrastructure.GetTraceID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode event",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()))
		return
	}
	h.Broadcast(msg)
}

// add registers c with the running hub. It reports false once the hub has
// stopped.
func (h *Hub) add(c *Client) bool {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return false
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func encode(typ string, data any, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      typ,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		TraceID:   traceID,
	})
}

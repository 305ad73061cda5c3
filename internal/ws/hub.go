// Package ws pushes cosmetic live-update notifications to admin
// dashboards: whenever a content table changes, connected clients
// subscribed to that table get a small event. Events travel through the
// store's pubsub channel so every API instance sees every change.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/enervolt/enervolt-backend/internal/metrics"
	"github.com/enervolt/enervolt-backend/internal/store"
)

// ChangeEvent is what subscribers receive.
type ChangeEvent struct {
	Table     string `json:"table"`
	Action    string `json:"action"` // created, updated, deleted
	ID        int64  `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan ChangeEvent
	cache      *store.Cache
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
	mu         sync.RWMutex
}

func NewHub(cache *store.Cache, logger *zap.SugaredLogger, mx *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan ChangeEvent, 64),
		cache:      cache,
		logger:     logger,
		metrics:    mx,
	}
}

func (h *Hub) Run(ctx context.Context) {
	go h.subscribeChanges(ctx)

	for {
		select {
		case <-ctx.Done():
			h.logger.Infow("WebSocket hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.IncrementConnections(ctx)
			}
			h.logger.Debugw("Client registered", "tables", client.tables)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.DecrementConnections(ctx)
			}

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(event.Table) {
					continue
				}
				select {
				case client.send <- data:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) subscribeChanges(ctx context.Context) {
	sub := h.cache.Subscribe(ctx, store.ChanContentChange)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Warnw("Malformed change event", "payload", msg.Payload, "error", err)
				continue
			}
			h.broadcast <- event
		}
	}
}

// Notifier satisfies the crud change-notification hook by publishing to
// the shared pubsub channel the hub listens on.
type Notifier struct {
	cache  *store.Cache
	logger *zap.SugaredLogger
}

func NewNotifier(cache *store.Cache, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{cache: cache, logger: logger}
}

func (n *Notifier) NotifyChange(ctx context.Context, table, action string, id int64) {
	event := ChangeEvent{
		Table:     table,
		Action:    action,
		ID:        id,
		Timestamp: time.Now().Unix(),
	}
	if err := n.cache.Publish(ctx, store.ChanContentChange, event); err != nil {
		n.logger.Warnw("Failed to publish change event", "table", table, "action", action, "error", err)
	}
}

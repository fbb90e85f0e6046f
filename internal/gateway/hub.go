// Package gateway implements the WebSocket Gateway's connection bookkeeping:
// accepting sockets, registering presence, and pushing frames to the
// connection a user currently holds — adapted from a Dapr-state-store-backed
// connection manager into one backed by the shared kvstore and an
// in-process map, since a single gateway instance only ever owns the
// sockets it itself accepted.
package gateway

import (
	"context"
	"os"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/metrics"
)

// connection pairs a live socket with its per-user outbound priority queue.
type connection struct {
	userID string
	conn   *websocket.Conn
	queue  *outboundQueue
	cancel context.CancelFunc
}

// Hub owns every connection accepted by this gateway instance. Presence
// (which instance owns a user's socket) lives in the shared kvstore so
// other instances and publishers can discover whether a user is reachable
// here, there, or nowhere.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]*connection
	store      kvstore.Store
	instanceID string
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewHub builds the connection hub. m may be nil, in which case the
// connection gauge is simply not recorded.
func NewHub(store kvstore.Store, m *metrics.Metrics, logger *zap.Logger) *Hub {
	instanceID, err := os.Hostname()
	if err != nil || instanceID == "" {
		instanceID = "gateway-unknown"
	}
	return &Hub{
		conns:      make(map[string]*connection),
		store:      store,
		instanceID: instanceID,
		metrics:    m,
		logger:     logger,
	}
}

func (h *Hub) InstanceID() string { return h.instanceID }

// Register accepts ownership of conn for userID: it records presence in the
// shared store, starts the write pump, and replaces any prior connection
// this instance held for the same user (a stale tab reconnecting).
func (h *Hub) Register(ctx context.Context, userID string, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(context.Background())
	c := &connection{userID: userID, conn: conn, queue: newOutboundQueue(), cancel: cancel}

	h.mu.Lock()
	replaced := false
	if old, ok := h.conns[userID]; ok {
		old.cancel()
		_ = old.conn.Close()
		replaced = true
	}
	h.conns[userID] = c
	h.mu.Unlock()

	if h.metrics != nil && !replaced {
		h.metrics.WebsocketConns.Inc()
	}

	if err := kvstore.SetPresence(ctx, h.store, userID, h.instanceID); err != nil {
		h.logger.Warn("failed to register presence", zap.String("user_id", userID), zap.Error(err))
	}

	go h.writePump(connCtx, c)
}

// Unregister removes the connection and clears presence. Safe to call more
// than once for the same user.
func (h *Hub) Unregister(ctx context.Context, userID string) {
	h.mu.Lock()
	c, ok := h.conns[userID]
	if ok {
		delete(h.conns, userID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	c.cancel()
	_ = c.conn.Close()

	if h.metrics != nil {
		h.metrics.WebsocketConns.Dec()
	}

	if err := kvstore.ClearPresence(ctx, h.store, userID); err != nil {
		h.logger.Warn("failed to clear presence", zap.String("user_id", userID), zap.Error(err))
	}
}

// Push enqueues a frame for delivery to userID's live connection on THIS
// instance. Returns false if this instance holds no connection for the
// user (the caller should then queue the frame for offline replay).
func (h *Hub) Push(f Frame, userID string) bool {
	h.mu.RLock()
	c, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.queue.enqueue(f)
}

// IsLocal reports whether this instance currently holds userID's socket.
func (h *Hub) IsLocal(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

func (h *Hub) writePump(ctx context.Context, c *connection) {
	for {
		frame, ok := c.queue.dequeue(ctx)
		if !ok {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, frame.Payload); err != nil {
			h.logger.Info("write failed, disconnecting", zap.String("user_id", c.userID), zap.Error(err))
			h.Unregister(context.Background(), c.userID)
			return
		}
	}
}

// ReadPump discards/logs inbound client frames (keep-alive/ack only in this
// protocol) until the socket errors or closes, then unregisters it.
func (h *Hub) ReadPump(userID string, conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.Unregister(context.Background(), userID)
			return
		}
	}
}

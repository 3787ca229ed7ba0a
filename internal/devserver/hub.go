package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alfycore/veko/internal/config"
	"github.com/alfycore/veko/internal/constants"
	"github.com/alfycore/veko/internal/observability"
)

// client is one live push-protocol connection. Frames are queued on
// send and written by a single pump goroutine, so frames reach each
// client in enqueue order.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub owns the set of live connections, greets new clients, and fans
// messages out to every open connection. A failure on one connection
// never affects delivery to the others.
type Hub struct {
	prefetch   config.PrefetchConfig
	logger     *zap.Logger
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
	errLimiter *rate.Limiter

	// RoutesFunc supplies the prefetch candidate list. Nil disables
	// the routes frame.
	RoutesFunc func() []string

	broadcast chan Message

	mu      sync.Mutex
	clients map[*client]bool
	closed  bool

	server   *http.Server
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHub creates a hub. Run starts the fan-out loop; Serve starts the
// listener.
func NewHub(prefetch config.PrefetchConfig, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		prefetch: prefetch,
		logger:   logger,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		errLimiter: rate.NewLimiter(rate.Limit(constants.ErrorBroadcastRate), constants.ErrorBroadcastRate),
		broadcast:  make(chan Message, 256),
		clients:    make(map[*client]bool),
	}
}

// Serve runs the push-protocol listener on addr until Shutdown.
func (h *Hub) Serve(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc(constants.PathWebSocket, h.HandleClient)

	h.mu.Lock()
	h.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := h.server
	h.mu.Unlock()

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		h.run()
	}()
	go func() {
		defer h.wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("Live reload listener failed", zap.Error(err))
		}
	}()

	h.logger.Info("Live reload listening", zap.String("addr", addr))
}

// HandleClient upgrades a browser connection, sends the greeting, and
// schedules the prefetch frame.
func (h *Hub) HandleClient(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ConnectedClients.Set(float64(n))
	}
	h.logger.Debug("Client connected", zap.String("remote", conn.RemoteAddr().String()), zap.Int("clients", n))

	go h.writePump(c)

	h.enqueue(c, ConnectedMessage())
	if h.prefetch.Enabled && h.RoutesFunc != nil {
		time.AfterFunc(h.prefetch.PrefetchDelay, func() {
			h.enqueue(c, RoutesMessage(h.RoutesFunc(), &PrefetchConfig{
				Enabled:       true,
				PrefetchDelay: h.prefetch.PrefetchDelay.Milliseconds(),
			}))
		})
	}

	// Reads are discarded; the protocol is one-way. Read errors mean
	// the client went away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c)
}

// Broadcast queues a message for delivery to every open connection.
// Error frames are throttled so a crash loop cannot flood clients.
func (h *Hub) Broadcast(msg Message) {
	if msg.Type == constants.MsgError && !h.errLimiter.Allow() {
		h.logger.Debug("Error broadcast suppressed by rate limit")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast queue full, dropping frame", zap.String("type", msg.Type))
	}
}

// run is the single fan-out loop: serialize once, write to every open
// client, isolate per-client failures.
func (h *Hub) run() {
	for msg := range h.broadcast {
		payload, err := json.Marshal(msg)
		if err != nil {
			h.logger.Error("Failed to serialize push message", zap.Error(err), zap.String("type", msg.Type))
			continue
		}

		if h.metrics != nil {
			h.metrics.RecordBroadcast(msg.Type)
		}

		h.mu.Lock()
		n := len(h.clients)
		for c := range h.clients {
			select {
			case c.send <- payload:
			default:
				// Client too slow to drain its queue; drop it rather
				// than stall the fan-out.
				h.logger.Warn("Dropping slow live reload client")
				h.dropLocked(c)
			}
		}
		h.mu.Unlock()

		h.logger.Debug("Broadcast delivered", zap.String("type", msg.Type), zap.Int("clients", n))
	}
}

// writePump is the single writer for one connection.
func (h *Hub) writePump(c *client) {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("Failed to send to client", zap.Error(err))
			if h.metrics != nil {
				h.metrics.BroadcastErrors.Inc()
			}
			h.drop(c)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}

func (h *Hub) enqueue(c *client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to serialize push message", zap.Error(err), zap.String("type", msg.Type))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// drop unregisters a client and closes its connection.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// dropLocked requires h.mu. Closing the send channel here, under the
// same lock every queueing path holds, rules out a send on a closed
// channel.
func (h *Hub) dropLocked(c *client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	_ = c.conn.Close()

	if h.metrics != nil {
		h.metrics.ConnectedClients.Set(float64(len(h.clients)))
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown closes every connection and the listening socket.
// Idempotent; safe when the hub never served.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		for c := range h.clients {
			h.dropLocked(c)
		}
		close(h.broadcast)
		srv := h.server
		h.mu.Unlock()

		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				h.logger.Warn("Live reload listener shutdown", zap.Error(err))
			}
		}

		h.wg.Wait()

		if h.metrics != nil {
			h.metrics.ConnectedClients.Set(0)
		}
		h.logger.Info("Live reload hub stopped")
	})
}

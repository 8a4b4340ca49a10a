package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/archipelago/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period. A failed ping drops the client.
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client is one live-reload connection.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans build notifications out to every connected browser.
type Hub struct {
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	done         chan struct{}
	doneOnce     sync.Once
	allowedHosts []string
	logger       logging.Logger
}

// NewHub creates a hub accepting browsers opened on host:port. Same-host
// origins are always accepted.
func NewHub(logger logging.Logger, host string, port int) *Hub {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		allowedHosts: []string{
			fmt.Sprintf("%s:%d", host, port),
			fmt.Sprintf("localhost:%d", port),
			fmt.Sprintf("127.0.0.1:%d", port),
		},
		logger: logger,
	}
}

// ClientCount returns the number of connected browsers.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Broadcast queues message for every client. It drops the message when the
// queue is full or the hub has stopped.
func (h *Hub) Broadcast(ctx context.Context, message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.logger.Warn(ctx, nil, "Broadcast queue full, dropping message")
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.allowedHosts,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	go client.writePump()
	go client.readPump()

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// checkOrigin accepts http(s) origins on the request host or on one of the
// configured preview hosts.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	if originURL.Host == r.Host {
		return true
	}
	for _, allowed := range h.allowedHosts {
		if originURL.Host == allowed {
			return true
		}
	}
	return false
}

func (h *Hub) run(ctx context.Context) {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(ctx, "Client connected", "clients", count)

		case conn := <-h.unregister:
			h.remove(conn, websocket.StatusNormalClosure)
			h.logger.Debug(ctx, "Client disconnected", "clients", h.ClientCount())

		case message := <-h.broadcast:
			h.clientsMutex.RLock()
			var failed []*websocket.Conn
			for conn, client := range h.clients {
				select {
				case client.send <- message:
				default:
					failed = append(failed, conn)
				}
			}
			h.clientsMutex.RUnlock()

			for _, conn := range failed {
				h.remove(conn, websocket.StatusPolicyViolation)
			}
		}
	}
}

func (h *Hub) stop() {
	h.doneOnce.Do(func() { close(h.done) })
	h.closeAll()
}

func (h *Hub) remove(conn *websocket.Conn, code websocket.StatusCode) {
	h.clientsMutex.Lock()
	client, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	h.clientsMutex.Unlock()

	if ok {
		close(client.send)
		conn.Close(code, "")
	}
}

func (h *Hub) closeAll() {
	h.clientsMutex.Lock()
	clients := h.clients
	h.clients = make(map[*websocket.Conn]*Client)
	h.clientsMutex.Unlock()

	for conn, client := range clients {
		close(client.send)
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// readPump discards incoming messages until the connection closes.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c.conn:
		case <-c.hub.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, _, err := c.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && status != -1 {
				c.hub.logger.Debug(context.Background(), "WebSocket read ended", "error", err.Error())
			}
			return
		}
	}
}

// writePump sends queued messages and keepalive pings. Closing the
// connection on exit unblocks readPump.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Package telemetry streams rotation tick samples to websocket viewers.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Versifine/rotation/internal/rotation"
)

const (
	pingPeriod   = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
	shutdownWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub fans tick samples out to every connected viewer. It is a
// rotation.Recorder; a viewer that falls sendBuffer messages behind is
// disconnected.
type Hub struct {
	addr string
	log  *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(addr string) *Hub {
	return &Hub{
		addr:    addr,
		log:     slog.Default(),
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) SetLogger(l *slog.Logger) {
	if l != nil {
		h.log = l
	}
}

// Handler serves the websocket endpoint at /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	return mux
}

// Start serves until ctx is done.
func (h *Hub) Start(ctx context.Context) error {
	h.log.Info("Starting telemetry server", "listen", h.addr)
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: h.Handler(), ReadHeaderTimeout: writeWait}
	go func() {
		<-ctx.Done()
		h.log.Info("Shutting down telemetry server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		h.closeAll()
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	h.log.Info("Telemetry server stopped")
	return nil
}

// RecordTick broadcasts result as a JSON text message.
func (h *Hub) RecordTick(result rotation.TickResult) {
	msg, err := json.Marshal(result)
	if err != nil {
		h.log.Error("Encode telemetry sample", "error", err)
		return
	}
	h.Broadcast(msg)
}

// Broadcast queues msg for every client, dropping clients whose queue is
// full.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("Dropping slow telemetry client", "client", c.id)
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Telemetry upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), id: r.RemoteAddr}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("Telemetry client connected", "client", c.id)

	go h.readPump(c)
	go h.writePump(c)
}

// readPump discards inbound messages so control frames are processed, and
// unregisters the client once the connection fails.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.log.Debug("Telemetry client disconnected", "client", c.id)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

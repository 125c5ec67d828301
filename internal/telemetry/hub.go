// Package telemetry streams body positions to external viewers over
// websockets.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/san-kum/rigsim/internal/dynamo"
	"github.com/san-kum/rigsim/internal/sim"
)

const (
	writeWait   = 2 * time.Second
	sendBuffer  = 64
	defaultPath = "/ws"
)

// Hub fans frames out to connected viewers. Publishing never blocks: a
// viewer whose buffer is full misses frames.
type Hub struct {
	upgrader websocket.Upgrader
	camera   dynamo.Vec3
	every    int
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	dropped atomic.Uint64
	sent    atomic.Uint64
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub publishes every n-th step (n < 1 means every step) with the follow
// camera offset from camera.
func NewHub(camera dynamo.Vec3, every int, log zerolog.Logger) *Hub {
	if every < 1 {
		every = 1
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		camera:  camera,
		every:   every,
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info().Str("viewer", conn.RemoteAddr().String()).Int("viewers", n).Msg("viewer connected")

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
		h.sent.Add(1)
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards inbound messages and detects the viewer going away.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg for every viewer without blocking.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// OnStep publishes the sample as a Frame.
func (h *Hub) OnStep(s *sim.Sample) {
	if s.Step%h.every != 0 || h.Viewers() == 0 {
		return
	}
	msg, err := json.Marshal(NewFrame(s, h.camera))
	if err != nil {
		h.log.Error().Err(err).Msg("encode frame")
		return
	}
	h.Broadcast(msg)
}

func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
func (h *Hub) Sent() uint64    { return h.sent.Load() }

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Serve listens on addr and serves the hub at /ws until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return eris.Wrapf(err, "telemetry listen %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle(defaultPath, h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		h.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	h.log.Info().Str("addr", ln.Addr().String()).Str("path", defaultPath).Msg("telemetry listening")
	if ready != nil {
		ready(ln.Addr())
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "telemetry serve")
	}
	return nil
}

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Versifine/citydrive/internal/input"
	"github.com/Versifine/citydrive/internal/session"
)

const (
	sendBuffer      = 8
	writeTimeout    = 2 * time.Second
	shutdownTimeout = 3 * time.Second
)

// Server streams frame snapshots to websocket clients and feeds their key
// and pointer messages into the shared tracker.
type Server struct {
	tracker  *input.Tracker
	addr     string
	origins  []string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewServer(tracker *input.Tracker, addr string) *Server {
	s := &Server{
		tracker: tracker,
		addr:    addr,
		clients: make(map[*client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// WithAllowedOrigins admits browser pages served from other origins, such
// as "http://localhost:5173". Same-origin pages are always allowed.
func (s *Server) WithAllowedOrigins(origins ...string) *Server {
	s.origins = append(s.origins, origins...)
	return s
}

// checkOrigin accepts clients that send no Origin (non-browser tools),
// same-origin pages and configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	slog.Warn("Rejected stream client origin", "origin", origin, "host", r.Host)
	return false
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.tracker == nil {
		return fmt.Errorf("stream server is not initialized")
	}
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down stream server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeAll()
	}()

	slog.Info("Starting stream server", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("stream listen: %w", err)
	}
	slog.Info("Stream server stopped")
	return nil
}

// HandleWS upgrades the request and serves one client until it disconnects.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	c := newClient(conn)
	s.add(c)
	slog.Info("Stream client connected", "remote", conn.RemoteAddr())

	go c.writeLoop()
	s.readLoop(c)

	s.releaseHeld(c)
	s.remove(c)
	slog.Info("Stream client disconnected", "remote", conn.RemoteAddr(), "dropped", c.droppedFrames())
}

// Present encodes the snapshot once and queues it for every client. Slow
// clients drop frames instead of stalling the frame loop.
func (s *Server) Present(snap session.Snapshot) error {
	data, err := json.Marshal(newFrameMessage(snap))
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.enqueue(data)
	}
	return nil
}

func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) readLoop(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Stream read failed", "error", err)
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("Discarding malformed stream message", "error", err)
			c.sendError("malformed message")
			continue
		}
		if err := s.apply(c, msg); err != nil {
			c.sendError(err.Error())
		}
	}
}

func (s *Server) apply(c *client, msg ClientMessage) error {
	switch msg.Type {
	case MessageKey:
		if msg.Code == "" {
			return fmt.Errorf("key message without code")
		}
		if msg.Down {
			if s.tracker.Press(msg.Code) {
				c.hold(msg.Code)
			}
		} else {
			s.tracker.Release(msg.Code)
			c.unhold(msg.Code)
		}
	case MessagePointer:
		s.tracker.PointerMove(msg.DX, msg.DY)
	case MessageLock:
		s.tracker.KeyDown(input.ActionLockPointer)
	case MessageUnlock:
		s.tracker.KeyDown(input.ActionUnlockPointer)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

// releaseHeld lifts keys a vanished client was still holding.
func (s *Server) releaseHeld(c *client) {
	for _, code := range c.heldCodes() {
		s.tracker.Release(code)
	}
}

func (s *Server) add(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		c.stop()
	}
	s.mu.Unlock()
	_ = c.conn.Close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	closed  bool
	held    map[string]struct{}
	dropped int
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		held: make(map[string]struct{}),
	}
}

func (c *client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.dropped++
	}
}

func (c *client) sendError(reason string) {
	data, err := json.Marshal(ErrorMessage{Type: MessageError, Error: reason})
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *client) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) writeLoop() {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("Stream write failed", "error", err)
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *client) droppedFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *client) hold(code string) {
	c.mu.Lock()
	c.held[code] = struct{}{}
	c.mu.Unlock()
}

func (c *client) unhold(code string) {
	c.mu.Lock()
	delete(c.held, code)
	c.mu.Unlock()
}

func (c *client) heldCodes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	codes := make([]string, 0, len(c.held))
	for code := range c.held {
		codes = append(codes, code)
	}
	return codes
}

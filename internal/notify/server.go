// Package notify pushes build results to WebSocket clients, so editors and
// live-reload plugins can refresh as soon as an artifact changes.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// MessageType names the payload carried in Message.Data.
type MessageType string

const (
	// MessageTypeHello is the first message on every connection.
	MessageTypeHello MessageType = "hello"

	// MessageTypeRebuild summarizes one build pass.
	MessageTypeRebuild MessageType = "rebuild"
)

// Message is the envelope written to clients.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// queueSize is how many messages a client may fall behind before it is
// disconnected.
const queueSize = 16

const writeTimeout = 5 * time.Second

// client is one connection and the queue its writer drains.
type client struct {
	conn  *websocket.Conn
	queue chan []byte
}

// Server accepts WebSocket clients on /ws and publishes messages to them.
// Each client has its own writer, so a slow client never delays others.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	hello     func() Message
	published atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration.
type Config struct {
	// Addr to listen on, for example "localhost:7878". Port 0 picks a free
	// port.
	Addr string

	// Logger for connection activity (default: log.Default()).
	Logger *log.Logger
}

// NewServer creates a server that is not listening yet.
func NewServer(config *Config) *Server {
	if config == nil {
		config = &Config{Addr: "localhost:7878"}
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:    config.Addr,
		clients: make(map[*client]struct{}),
		hello:   func() Message { return Message{Type: MessageTypeHello} },
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveClient)
	mux.HandleFunc("/health", s.serveHealth)
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Notification server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("Server error: %v", err)
		}
	}()
	return nil
}

// Stop disconnects every client and shuts the listener down. Publish is a
// no-op afterwards.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	var err error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := s.server.Shutdown(ctx); serr != nil {
			err = fmt.Errorf("server shutdown error: %w", serr)
		}
	}
	s.wg.Wait()
	return err
}

// Publish stamps msg, encodes it once and queues it for every client. It
// never blocks: a client whose queue is full is disconnected.
func (s *Server) Publish(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("Failed to encode %s message: %v", msg.Type, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.published.Add(1)
	for c := range s.clients {
		select {
		case c.queue <- data:
		default:
			s.logger.Printf("Client fell %d messages behind, disconnecting", queueSize)
			delete(s.clients, c)
			close(c.queue)
		}
	}
}

func (s *Server) serveClient(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	hello := s.hello()
	hello.Timestamp = time.Now()
	first, err := json.Marshal(hello)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "")
		return
	}

	// The hello is queued before registration so no publish can overtake it.
	c := &client{conn: conn, queue: make(chan []byte, queueSize)}
	c.queue <- first

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		return
	}
	s.clients[c] = struct{}{}
	s.wg.Add(1)
	count := len(s.clients)
	s.mu.Unlock()
	s.logger.Printf("Client connected (total: %d)", count)

	defer s.wg.Done()
	s.write(c)
}

// write drains c's queue until the client goes away, the queue is closed
// or the server stops. Clients only listen; a data frame from one closes
// its connection.
func (s *Server) write(c *client) {
	ctx := c.conn.CloseRead(s.ctx)
	status, reason := websocket.StatusNormalClosure, ""
	defer func() {
		s.drop(c)
		_ = c.conn.Close(status, reason)
	}()

	for {
		select {
		case <-ctx.Done():
			if s.ctx.Err() != nil {
				status, reason = websocket.StatusGoingAway, "Server shutting down"
			}
			return
		case data, ok := <-c.queue:
			if !ok {
				status, reason = websocket.StatusPolicyViolation, "too slow"
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Printf("Failed to send to client: %v", err)
				return
			}
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	if ok {
		delete(s.clients, c)
		close(c.queue)
	}
	count := len(s.clients)
	s.mu.Unlock()
	if ok {
		s.logger.Printf("Client disconnected (total: %d)", count)
	}
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"clients":   s.ClientCount(),
		"published": s.published.Load(),
	})
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

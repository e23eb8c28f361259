// pkg/stream/server.go
package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/opd-ai/go-blob/pkg/config"
	"github.com/opd-ai/go-blob/pkg/engine"
	"github.com/opd-ai/go-blob/pkg/logging"
)

// ErrServerClosed is returned when a client connects after Close
var ErrServerClosed = errors.New("stream server closed")

// Server fans simulation snapshots out to websocket viewers. Each snapshot
// is msgpack-encoded once and sent as a binary frame. A slow viewer loses
// its oldest queued frames instead of stalling the simulation.
type Server struct {
	upgrader     websocket.Upgrader
	path         string
	queueSize    int
	maxClients   int
	writeTimeout time.Duration
	limiter      *connectLimiter
	logger       *logging.Logger

	clients     map[uint64]*client
	clientsLock sync.RWMutex
	nextID      uint64
	closed      bool

	httpServer *http.Server
	listener   net.Listener

	frames  atomic.Uint64
	dropped atomic.Uint64
}

type client struct {
	id     uint64
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	remote string
}

// NewServer creates a stream server from cfg. A nil logger discards.
func NewServer(cfg config.StreamConfig, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		path:         cfg.Path,
		queueSize:    cfg.QueueSize,
		maxClients:   cfg.MaxClients,
		writeTimeout: cfg.WriteTimeout,
		limiter:      newConnectLimiter(cfg.ConnectsPerMinute, time.Minute),
		logger:       logger,
		clients:      make(map[uint64]*client),
	}
}

// Handler returns an http.Handler serving the feed at the configured path
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.HandleWS)
	return mux
}

// HandleWS upgrades the request and registers the viewer
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	s.clientsLock.RLock()
	closed := s.closed
	full := s.maxClients > 0 && len(s.clients) >= s.maxClients
	s.clientsLock.RUnlock()
	if closed {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	if full {
		http.Error(w, "too many viewers", http.StatusServiceUnavailable)
		return
	}
	if !s.limiter.Allow(r.RemoteAddr) {
		s.logger.Warn(r.Context(), "viewer connect rate exceeded", "remote", r.RemoteAddr)
		http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", "remote", r.RemoteAddr, "error", err.Error())
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, s.queueSize),
		done:   make(chan struct{}),
		remote: r.RemoteAddr,
	}
	if err := s.addClient(c); err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		conn.Close()
		return
	}

	s.logger.Info(r.Context(), "viewer connected", "client_id", c.id, "remote", c.remote)

	go s.writeLoop(c)
	s.readLoop(c)
}

func (s *Server) addClient(c *client) error {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if s.maxClients > 0 && len(s.clients) >= s.maxClients {
		return fmt.Errorf("viewer limit %d reached", s.maxClients)
	}
	s.nextID++
	c.id = s.nextID
	s.clients[c.id] = c
	return nil
}

// removeClient drops c from the fan-out and closes its connection
func (s *Server) removeClient(c *client) {
	s.clientsLock.Lock()
	_, ok := s.clients[c.id]
	delete(s.clients, c.id)
	s.clientsLock.Unlock()

	c.close()
	if ok {
		s.logger.Info(context.Background(), "viewer disconnected", "client_id", c.id, "remote", c.remote)
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readLoop discards viewer messages and returns once the connection dies
func (s *Server) readLoop(c *client) {
	defer s.removeClient(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer s.removeClient(c)
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if s.writeTimeout > 0 {
				c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				s.logger.Debug(context.Background(), "viewer write failed", "client_id", c.id, "error", err.Error())
				return
			}
		}
	}
}

// enqueue queues frame, evicting the oldest frames while the queue is full.
// It reports how many frames were evicted.
func (c *client) enqueue(frame []byte) int {
	evicted := 0
	for {
		select {
		case <-c.done:
			return evicted
		case c.send <- frame:
			return evicted
		default:
		}
		select {
		case <-c.send:
			evicted++
		default:
		}
	}
}

// Publish encodes snap and queues it for every viewer. It never blocks on
// the network and implements engine.Observer.
func (s *Server) Publish(snap *engine.Snapshot) {
	if snap == nil {
		return
	}

	s.clientsLock.RLock()
	if len(s.clients) == 0 {
		s.clientsLock.RUnlock()
		return
	}
	targets := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.clientsLock.RUnlock()

	frame, err := msgpack.Marshal(snap)
	if err != nil {
		s.logger.Error(context.Background(), "failed to encode snapshot", err, "tick", snap.Tick)
		return
	}

	s.frames.Add(1)
	for _, c := range targets {
		if n := c.enqueue(frame); n > 0 {
			s.dropped.Add(uint64(n))
		}
	}
}

// Clients returns the number of connected viewers
func (s *Server) Clients() int {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	return len(s.clients)
}

// Frames returns the number of snapshots encoded for viewers
func (s *Server) Frames() uint64 { return s.frames.Load() }

// Dropped returns the number of frames evicted from slow viewer queues
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// Start listens on addr and serves the feed in the background. The bound
// address is available from Addr.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start stream server: %w", err)
	}

	s.clientsLock.Lock()
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.httpServer
	s.clientsLock.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "stream server stopped", err)
		}
	}()

	s.logger.Info(context.Background(), "stream server started", "addr", listener.Addr().String(), "path", s.path)
	return nil
}

// Addr is the listening address once Start has succeeded
func (s *Server) Addr() string {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close disconnects every viewer and stops the listener if one was started
func (s *Server) Close(ctx context.Context) error {
	s.clientsLock.Lock()
	if s.closed {
		s.clientsLock.Unlock()
		return nil
	}
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[uint64]*client)
	srv := s.httpServer
	s.clientsLock.Unlock()

	s.limiter.Close()
	for _, c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "simulation stopped"),
			time.Now().Add(time.Second))
		c.close()
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop stream server: %w", err)
		}
	}

	s.logger.Info(ctx, "stream server stopped", "frames", s.frames.Load(), "dropped", s.dropped.Load())
	return nil
}

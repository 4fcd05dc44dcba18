package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gavelrs/gavel/internal/state"
)

// Server is the loopback-only admin surface: health, Prometheus
// scrape, and a read-only status push feed. It is entirely independent
// of the unix RPC socket — every control operation still goes through
// rpc.Server; this surface only observes.
type Server struct {
	addr    string
	metrics *Metrics
	store   *state.Store
	log     *zap.Logger

	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}

	httpServer *http.Server
}

// NewServer builds the admin HTTP server bound to addr (default
// 127.0.0.1:9400).
func NewServer(addr string, m *Metrics, store *state.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		addr:    addr,
		metrics: m,
		store:   store,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/ws/status", s.handleWebSocket).Methods(http.MethodGet)
	return r
}

// ListenAndServe runs the admin HTTP server until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.router()}
	go s.broadcastLoop()
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown() {
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	s.sendSnapshot(conn)

	// This feed is read-only observability; drain and discard anything
	// a client sends so pings/pongs keep the connection alive, but no
	// inbound message is ever treated as a control command.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s.broadcastSnapshot()
	}
}

type statusSnapshot struct {
	Type   string      `json:"type"`
	Tasks  int         `json:"tasks"`
	Queues int         `json:"queues"`
	GPUs   interface{} `json:"gpus"`
}

func (s *Server) snapshot() statusSnapshot {
	return statusSnapshot{
		Type:   "status",
		Tasks:  len(s.store.GetAllTasks()),
		Queues: len(s.store.GetAllQueues()),
		GPUs:   s.store.GetAllGPUStats(),
	}
}

func (s *Server) sendSnapshot(conn *websocket.Conn) {
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) broadcastSnapshot() {
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		return
	}

	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			s.mu.Lock()
			delete(s.conns, c)
			s.mu.Unlock()
		}
	}
}

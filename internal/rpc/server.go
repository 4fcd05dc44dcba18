// Package rpc implements the local-socket request/reply server and
// client: one framed request, one framed reply, per connection.
package rpc

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gavelrs/gavel/internal/handlers"
	"github.com/gavelrs/gavel/internal/tracing"
	"github.com/gavelrs/gavel/internal/wire"
)

// Server accepts connections on one local stream socket and handles
// exactly one framed request / one framed reply per connection before
// closing it.
type Server struct {
	sockPath string
	handlers *handlers.Handlers
	log      *zap.Logger
	tracer   *tracing.Provider

	listener net.Listener
}

// SetTracer attaches a tracing.Provider used to span each request
// dispatch. Optional — a nil tracer leaves dispatch unspanned.
func (s *Server) SetTracer(t *tracing.Provider) { s.tracer = t }

// NewServer builds a Server bound to sockPath. The socket file is
// unlinked before bind so a stale one left by a crashed daemon
// doesn't block the new listener.
func NewServer(sockPath string, h *handlers.Handlers, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{sockPath: sockPath, handlers: h, log: log}
}

// Serve binds the socket and runs the accept loop until Stop is called
// or a Daemon-Stop request is handled. It always returns nil on a clean
// shutdown.
func (s *Server) Serve() error {
	_ = os.Remove(s.sockPath)

	l, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return err
	}
	s.listener = l
	defer func() {
		l.Close()
		_ = os.Remove(s.sockPath)
	}()

	// Serve returns only after every in-flight handler has written its
	// reply, so a Daemon-Stop reply is sent before shutdown proceeds.
	var inflight sync.WaitGroup
	defer inflight.Wait()

	go func() {
		<-s.handlers.Shutdown
		s.listener.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.handlers.Shutdown:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			s.handleConn(conn)
		}()
	}
}

// Stop closes the listener, causing Serve to return.
func (s *Server) Stop() {
	select {
	case <-s.handlers.Shutdown:
	default:
		close(s.handlers.Shutdown)
	}
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	req, err := wire.ReadRequest(conn)
	if err != nil {
		s.log.Debug("transport error reading request", zap.Error(err))
		return
	}

	_, span := s.tracer.StartSpan(context.Background(), "rpc.dispatch", attribute.String("kind", string(req.Kind)))
	reply := s.handlers.Dispatch(req)
	tracing.End(span, nil)

	if err := wire.WriteReply(conn, reply); err != nil {
		s.log.Debug("transport error writing reply", zap.Error(err))
	}
}

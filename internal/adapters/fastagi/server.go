package fastagi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/voxflow/voxflow/internal/logging"
	"github.com/voxflow/voxflow/pkg/ports"
)

// Handler processes one call event: drive the channel identified by uid
// through flowName using the given call-control client.
type Handler interface {
	HandleEvent(ctx context.Context, call ports.CallControl, uid, flowName string) error
}

// Server accepts FastAGI connections and hands each one to the Handler. The
// platform opens a fresh connection per logical step, so connections are
// short-lived and independent.
type Server struct {
	handler     Handler
	log         *slog.Logger
	defaultFlow string
	timeout     time.Duration

	mu       sync.Mutex
	listener net.Listener
	conns    sync.WaitGroup
	closed   bool
}

type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithDefaultFlow names the flow used when the AGI URL carries no path.
func WithDefaultFlow(name string) ServerOption {
	return func(s *Server) { s.defaultFlow = name }
}

// WithEventTimeout bounds the handling of one connection.
func WithEventTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewServer creates a server around a handler.
func NewServer(handler Handler, opts ...ServerOption) *Server {
	s := &Server{
		handler:     handler,
		log:         logging.NewNop(),
		defaultFlow: "default",
		timeout:     5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe binds addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("fastagi listen %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections from l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("fastagi: server closed")
	}
	s.listener = l
	s.mu.Unlock()

	s.log.Info("fastagi listening", "addr", l.Addr().String())
	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("fastagi accept: %w", err)
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting and waits for in-flight connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		_ = l.Close()
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	r := bufio.NewReader(conn)
	env, err := readEnv(r)
	if err != nil {
		s.log.Warn("fastagi handshake failed", "remote", conn.RemoteAddr().String(), "err", err)
		return
	}

	uid := env["agi_uniqueid"]
	if uid == "" {
		s.log.Warn("fastagi request without agi_uniqueid", "remote", conn.RemoteAddr().String())
		return
	}
	flow := flowName(env, s.defaultFlow)

	client := NewClient(conn, r)
	if err := s.handler.HandleEvent(ctx, client, uid, flow); err != nil {
		s.log.Error("event handling failed", "channel", uid, "flow", flow, "err", err)
	}
}

// readEnv consumes the agi_* header block the platform sends on connect.
func readEnv(r *bufio.Reader) (map[string]string, error) {
	env := map[string]string{}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return env, nil
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			key, value, _ = strings.Cut(line, ":")
		}
		if strings.HasPrefix(key, "agi_") {
			env[key] = value
		}
	}
}

// flowName extracts the flow from the agi:// request path, falling back to
// the configured default.
func flowName(env map[string]string, fallback string) string {
	script := strings.Trim(env["agi_network_script"], "/")
	if script == "" {
		return fallback
	}
	return script
}

// Package server exposes the prefetch daemon over HTTP: a JSON-RPC bridge,
// a push-enabled JSON-RPC WebSocket and a raw viewport event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/warpdl/warpfetch/common"
	"github.com/warpdl/warpfetch/pkg/logger"
)

// Endpoint paths.
const (
	PathRPC       = "/jsonrpc"
	PathRPCSocket = "/jsonrpc/ws"
	PathViewport  = "/viewport"
)

// Server serves the daemon endpoints on any number of listeners.
type Server struct {
	rpc     *RPCServer
	handler http.Handler
	log     logger.Logger

	// base parents every request context; cancelling it ends WebSocket
	// sessions, which Shutdown does not track.
	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	httpSrv *http.Server
}

// New builds the endpoint mux. Every route sits behind the bearer check.
func New(cfg *RPCConfig, deps Deps) *Server {
	rs := NewRPCServer(cfg, deps)
	mux := http.NewServeMux()
	mux.Handle("POST "+PathRPC, rs.bridge)
	mux.HandleFunc("GET "+PathRPCSocket, rs.serveRPCWebSocket)
	mux.Handle("GET "+PathViewport, rs.viewportStream())
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		rpc:     rs,
		handler: requireToken(rs.cfg.Secret, mux),
		log:     rs.log,
		base:    base,
		cancel:  cancel,
	}
}

// Handler returns the authenticated mux.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Notifier returns the push notifier for WebSocket clients.
func (s *Server) Notifier() *RPCNotifier {
	return s.rpc.notifier
}

// Serve accepts connections on every listener until Shutdown. It returns the
// first listener error other than http.ErrServerClosed.
func (s *Server) Serve(listeners ...net.Listener) error {
	if len(listeners) == 0 {
		return errors.New("server: no listeners")
	}
	s.mu.Lock()
	if s.httpSrv == nil {
		s.httpSrv = &http.Server{
			Handler:     s.handler,
			BaseContext: func(net.Listener) context.Context { return s.base },
		}
	}
	srv := s.httpSrv
	s.mu.Unlock()

	errs := make(chan error, len(listeners))
	for _, l := range listeners {
		s.log.Info("server: listening on %s %s", l.Addr().Network(), l.Addr())
		go func(l net.Listener) {
			errs <- srv.Serve(l)
		}(l)
	}
	var first error
	for range listeners {
		if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) && first == nil {
			first = err
			_ = srv.Close()
		}
	}
	return first
}

// Shutdown stops accepting connections, ends WebSocket sessions and waits for
// in-flight HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	defer s.rpc.Close()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// TCPAddress returns the loopback address for port.
func TCPAddress(port int) string {
	return fmt.Sprintf("%s:%d", common.TCPHost, port)
}

// Package daemon runs the warpfetch HTTP endpoints on their listeners and
// owns the start and shutdown sequence.
package daemon

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/warpdl/warpfetch/internal/server"
	"github.com/warpdl/warpfetch/pkg/logger"
)

var (
	// ErrAlreadyRunning is returned when Start is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when teardown exceeds ShutdownTimeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")

	// ErrNoServer is returned by Start when no Server dependency is set.
	ErrNoServer = errors.New("daemon: no server configured")
)

// DefaultShutdownTimeout bounds teardown when Config.ShutdownTimeout is zero.
const DefaultShutdownTimeout = 10 * time.Second

// Config holds the listening and shutdown settings.
type Config struct {
	// Port is the loopback TCP port. Use 0 for an ephemeral port.
	Port int

	// LocalAddress is the Unix socket path or named pipe. Empty disables the
	// local listener.
	LocalAddress string

	// ShutdownTimeout bounds server shutdown plus ShutdownFunc.
	ShutdownTimeout time.Duration
}

// HTTPServer is what the runner serves. *server.Server implements it.
type HTTPServer interface {
	Serve(listeners ...net.Listener) error
	Shutdown(ctx context.Context) error
}

// Dependencies holds the pieces the runner drives, injectable for tests.
type Dependencies struct {
	Server HTTPServer

	// ListenerFactory creates the TCP listener. Defaults to net.Listen.
	ListenerFactory func(network, address string) (net.Listener, error)

	// LocalListenerFactory creates the local socket listener. Defaults to
	// server.ListenLocal.
	LocalListenerFactory func(address string) (net.Listener, error)

	// ShutdownFunc runs after the server stops, to release the components
	// behind it.
	ShutdownFunc func() error

	Logger logger.Logger
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config *Config
	deps   *Dependencies
	log    logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	addr    net.Addr
}

// New creates a runner. A nil config listens on an ephemeral port with no
// local socket.
func New(config *Config, deps *Dependencies) *Runner {
	if config == nil {
		config = &Config{}
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	if deps.LocalListenerFactory == nil {
		deps.LocalListenerFactory = server.ListenLocal
	}
	return &Runner{
		config: config,
		deps:   deps,
		log:    logger.OrNop(deps.Logger),
	}
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Addr returns the TCP listener address while running.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr
}

// IsRunning reports whether Start is serving.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start listens, serves and blocks until ctx is cancelled, Shutdown is
// called or the server fails. It tears everything down before returning
// and returns ctx.Err() or the serve error.
func (r *Runner) Start(ctx context.Context) error {
	if r.deps.Server == nil {
		return ErrNoServer
	}
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	listeners, err := r.listen()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	r.addr = listeners[0].Addr()
	done := r.done
	r.mu.Unlock()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- r.deps.Server.Serve(listeners...)
	}()

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-serveErr:
		cancel()
		if err == nil {
			err = ctx.Err()
		}
	}

	r.teardown(listeners)

	r.mu.Lock()
	r.running = false
	r.addr = nil
	r.mu.Unlock()
	cancel()
	close(done)
	return err
}

// listen opens the TCP listener and, if configured, the local one. A local
// listener failure is logged and the daemon continues on TCP alone.
// Caller must hold the mutex.
func (r *Runner) listen() ([]net.Listener, error) {
	tcp, err := r.deps.ListenerFactory("tcp", server.TCPAddress(r.config.Port))
	if err != nil {
		return nil, err
	}
	listeners := []net.Listener{tcp}
	if r.config.LocalAddress == "" {
		return listeners, nil
	}
	local, err := r.deps.LocalListenerFactory(r.config.LocalAddress)
	if err != nil {
		r.log.Warning("daemon: local socket %s unavailable, using TCP only: %v", r.config.LocalAddress, err)
		return listeners, nil
	}
	return append(listeners, local), nil
}

func (r *Runner) teardown(listeners []net.Listener) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
	defer cancel()
	if err := r.deps.Server.Shutdown(ctx); err != nil {
		r.log.Warning("daemon: server shutdown: %v", err)
	}
	// Listener close errors after Shutdown only mean they are already closed.
	for _, l := range listeners {
		_ = l.Close()
	}
	if r.deps.ShutdownFunc != nil {
		if err := r.deps.ShutdownFunc(); err != nil {
			r.log.Error("daemon: shutdown: %v", err)
		}
	}
}

// Shutdown stops a running daemon and waits for Start to finish tearing down.
// It returns ErrNotRunning if the daemon is stopped and ErrShutdownTimeout if
// teardown outlasts the configured timeout; teardown continues in the
// background in that case.
func (r *Runner) Shutdown() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(r.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

package server

import (
	"context"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/warpdl/warpfetch/common"
	"github.com/warpdl/warpfetch/pkg/fetch"
	"github.com/warpdl/warpfetch/pkg/logger"
	"github.com/warpdl/warpfetch/pkg/prefetch"
)

// DefaultPushTimeout bounds how long a broadcast waits for one client.
const DefaultPushTimeout = 2 * time.Second

// RPCNotifier keeps the jrpc2 servers of connected WebSocket clients and
// pushes notifications to all of them.
type RPCNotifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	log     logger.Logger

	pushTimeout time.Duration
}

func NewRPCNotifier(l logger.Logger) *RPCNotifier {
	return &RPCNotifier{
		servers:     make(map[*jrpc2.Server]struct{}),
		log:         logger.OrNop(l),
		pushTimeout: DefaultPushTimeout,
	}
}

type pushResult struct {
	srv *jrpc2.Server
	err error
}

func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	n.servers[srv] = struct{}{}
	n.mu.Unlock()
}

func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	delete(n.servers, srv)
	n.mu.Unlock()
}

// Broadcast sends method to every registered server concurrently and waits
// at most the push timeout. Servers that fail or do not take the
// notification in time are dropped and receive no further pushes.
func (n *RPCNotifier) Broadcast(method string, params any) {
	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()
	if len(servers) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.pushTimeout)
	defer cancel()
	results := make(chan pushResult, len(servers))
	for _, srv := range servers {
		go func(srv *jrpc2.Server) {
			results <- pushResult{srv: srv, err: srv.Notify(ctx, method, params)}
		}(srv)
	}

	pending := make(map[*jrpc2.Server]struct{}, len(servers))
	for _, srv := range servers {
		pending[srv] = struct{}{}
	}
	var failed []*jrpc2.Server
	for len(pending) > 0 {
		select {
		case r := <-results:
			delete(pending, r.srv)
			if r.err != nil {
				n.log.Warning("rpc: push %s failed: %v", method, r.err)
				failed = append(failed, r.srv)
			}
		case <-ctx.Done():
			n.log.Warning("rpc: push %s timed out for %d client(s)", method, len(pending))
			for srv := range pending {
				failed = append(failed, srv)
			}
			pending = nil
		}
	}
	if len(failed) == 0 {
		return
	}
	n.mu.Lock()
	for _, srv := range failed {
		delete(n.servers, srv)
	}
	n.mu.Unlock()
}

// Count returns the number of connected clients.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}

// Sink wraps next so that every non-empty delta is also pushed as a
// prefetch.begin or prefetch.cancel notification. next sees the delta before
// the notification goes out.
func (n *RPCNotifier) Sink(next prefetch.Sink) prefetch.Sink {
	return &notifyingSink{n: n, next: next}
}

type notifyingSink struct {
	n    *RPCNotifier
	next prefetch.Sink
}

func (s *notifyingSink) BeginPrefetch(indices []int) {
	if s.next != nil {
		s.next.BeginPrefetch(indices)
	}
	if len(indices) > 0 {
		s.n.Broadcast(common.NotifyBegin, &common.IndicesNotification{Indices: indices})
	}
}

func (s *notifyingSink) CancelPrefetch(indices []int) {
	if s.next != nil {
		s.next.CancelPrefetch(indices)
	}
	if len(indices) > 0 {
		s.n.Broadcast(common.NotifyCancel, &common.IndicesNotification{Indices: indices})
	}
}

// FetchHandlers returns executor callbacks that push fetch.complete and
// fetch.error. Fields already set in base are chained after the push.
func (n *RPCNotifier) FetchHandlers(base *fetch.Handlers) *fetch.Handlers {
	h := &fetch.Handlers{}
	if base != nil {
		*h = *base
	}
	onComplete, onError := h.OnComplete, h.OnError
	h.OnComplete = func(index int, url string, bytes int64) {
		n.Broadcast(common.NotifyFetchComplete, &common.FetchCompleteNotification{
			Index: index,
			URL:   url,
			Bytes: bytes,
		})
		if onComplete != nil {
			onComplete(index, url, bytes)
		}
	}
	h.OnError = func(index int, url string, err error) {
		n.Broadcast(common.NotifyFetchError, &common.FetchErrorNotification{
			Index: index,
			URL:   url,
			Error: err.Error(),
		})
		if onError != nil {
			onError(index, url, err)
		}
	}
	return h
}

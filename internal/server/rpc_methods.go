package server

import (
	"context"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/warpfetch/common"
	"github.com/warpdl/warpfetch/pkg/cache"
	"github.com/warpdl/warpfetch/pkg/catalog"
	"github.com/warpdl/warpfetch/pkg/fetch"
	"github.com/warpdl/warpfetch/pkg/logger"
	"github.com/warpdl/warpfetch/pkg/prefetch"
)

const (
	codeUnavailable   = jrpc2.Code(-32001)
	codeCacheFailure  = jrpc2.Code(-32002)
	codeInvalidParams = jrpc2.Code(-32602)
)

// Viewport is the scheduler surface exposed over RPC.
type Viewport interface {
	OnAppear(index int)
	OnDisappear(index int)
	Visible() []int
	Window() prefetch.Range
	Pending() bool
}

// Prefetcher is the executor surface exposed over RPC.
type Prefetcher interface {
	Stats() fetch.Stats
	Pause()
	Resume()
}

// Store is the cache surface exposed over RPC.
type Store interface {
	Stats() (cache.Stats, error)
	Prune(before time.Time) (int, error)
}

// CatalogReporter reports the state of the loaded catalog.
type CatalogReporter interface {
	Status() catalog.Status
}

// RPCConfig holds the build information reported by system.getVersion and
// the bearer secret guarding every endpoint.
type RPCConfig struct {
	Secret    string
	Version   string
	Commit    string
	BuildType string
}

// Deps are the daemon components the RPC methods operate on. Viewport is
// required; methods touching a nil component fail with an unavailable error.
type Deps struct {
	Viewport   Viewport
	Prefetcher Prefetcher
	Store      Store
	Catalog    CatalogReporter
	Notifier   *RPCNotifier
	Logger     logger.Logger
}

// RPCServer holds the method table shared by the HTTP bridge and every
// WebSocket connection.
type RPCServer struct {
	cfg      RPCConfig
	deps     Deps
	log      logger.Logger
	notifier *RPCNotifier
	methods  handler.Map
	bridge   jhttp.Bridge
	now      func() time.Time
}

func NewRPCServer(cfg *RPCConfig, deps Deps) *RPCServer {
	rs := &RPCServer{
		deps:     deps,
		log:      logger.OrNop(deps.Logger),
		notifier: deps.Notifier,
		now:      time.Now,
	}
	if cfg != nil {
		rs.cfg = *cfg
	}
	if rs.notifier == nil {
		rs.notifier = NewRPCNotifier(rs.log)
	}
	rs.methods = handler.Map{
		common.MethodVersion:       handler.New(rs.systemGetVersion),
		common.MethodAppear:        handler.New(rs.viewportAppear),
		common.MethodDisappear:     handler.New(rs.viewportDisappear),
		common.MethodViewport:      handler.New(rs.viewportStatus),
		common.MethodCatalogStatus: handler.New(rs.catalogStatus),
		common.MethodStats:         handler.New(rs.prefetchStats),
		common.MethodPause:         handler.New(rs.prefetchPause),
		common.MethodResume:        handler.New(rs.prefetchResume),
		common.MethodPrune:         handler.New(rs.cachePrune),
	}
	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

// Notifier returns the notifier WebSocket clients are registered with.
func (rs *RPCServer) Notifier() *RPCNotifier {
	return rs.notifier
}

// Close releases the HTTP bridge.
func (rs *RPCServer) Close() {
	rs.bridge.Close()
}

// indexArg uses a pointer so a missing index is told apart from index 0.
type indexArg struct {
	Index *int `json:"index"`
}

func (a *indexArg) validate() (int, error) {
	if a == nil || a.Index == nil {
		return 0, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: index"}
	}
	if *a.Index < 0 {
		return 0, &jrpc2.Error{Code: codeInvalidParams, Message: "index must not be negative"}
	}
	return *a.Index, nil
}

func unavailable(what string) error {
	return &jrpc2.Error{Code: codeUnavailable, Message: what + " not available"}
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResult, error) {
	return &common.VersionResult{
		Version:   rs.cfg.Version,
		Commit:    rs.cfg.Commit,
		BuildType: rs.cfg.BuildType,
	}, nil
}

func (rs *RPCServer) viewportAppear(_ context.Context, p *indexArg) (*common.EmptyResult, error) {
	i, err := p.validate()
	if err != nil {
		return nil, err
	}
	if rs.deps.Viewport == nil {
		return nil, unavailable("viewport")
	}
	rs.deps.Viewport.OnAppear(i)
	return &common.EmptyResult{}, nil
}

func (rs *RPCServer) viewportDisappear(_ context.Context, p *indexArg) (*common.EmptyResult, error) {
	i, err := p.validate()
	if err != nil {
		return nil, err
	}
	if rs.deps.Viewport == nil {
		return nil, unavailable("viewport")
	}
	rs.deps.Viewport.OnDisappear(i)
	return &common.EmptyResult{}, nil
}

func (rs *RPCServer) viewportStatus(_ context.Context) (*common.ViewportStatus, error) {
	v := rs.deps.Viewport
	if v == nil {
		return nil, unavailable("viewport")
	}
	return &common.ViewportStatus{
		Visible: v.Visible(),
		Window:  v.Window(),
		Pending: v.Pending(),
	}, nil
}

func (rs *RPCServer) catalogStatus(_ context.Context) (*common.CatalogStatus, error) {
	if rs.deps.Catalog == nil {
		return nil, unavailable("catalog")
	}
	st := rs.deps.Catalog.Status()
	return &st, nil
}

func (rs *RPCServer) prefetchStats(_ context.Context) (*common.StatsResult, error) {
	if rs.deps.Prefetcher == nil {
		return nil, unavailable("prefetcher")
	}
	res := &common.StatsResult{Fetch: rs.deps.Prefetcher.Stats()}
	if rs.deps.Store != nil {
		cs, err := rs.deps.Store.Stats()
		if err != nil {
			return nil, &jrpc2.Error{Code: codeCacheFailure, Message: err.Error()}
		}
		res.Cache = cs
	}
	return res, nil
}

func (rs *RPCServer) prefetchPause(_ context.Context) (*common.EmptyResult, error) {
	if rs.deps.Prefetcher == nil {
		return nil, unavailable("prefetcher")
	}
	rs.deps.Prefetcher.Pause()
	rs.log.Info("rpc: prefetch paused")
	return &common.EmptyResult{}, nil
}

func (rs *RPCServer) prefetchResume(_ context.Context) (*common.EmptyResult, error) {
	if rs.deps.Prefetcher == nil {
		return nil, unavailable("prefetcher")
	}
	rs.deps.Prefetcher.Resume()
	rs.log.Info("rpc: prefetch resumed")
	return &common.EmptyResult{}, nil
}

func (rs *RPCServer) cachePrune(_ context.Context, p *common.PruneParams) (*common.PruneResult, error) {
	if p == nil || p.OlderThanSeconds < 0 {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "olderThanSeconds must not be negative"}
	}
	if rs.deps.Store == nil {
		return nil, unavailable("cache")
	}
	before := pruneCutoff(rs.now(), p.OlderThanSeconds)
	n, err := rs.deps.Store.Prune(before)
	if err != nil {
		return nil, &jrpc2.Error{Code: codeCacheFailure, Message: err.Error()}
	}
	rs.log.Info("rpc: pruned %d cache entries", n)
	return &common.PruneResult{Removed: n}, nil
}

// pruneCutoff subtracts in whole seconds; a time.Duration overflows past
// roughly 292 years.
func pruneCutoff(now time.Time, olderThanSeconds int64) time.Time {
	return time.Unix(now.Unix()-olderThanSeconds, int64(now.Nanosecond()))
}

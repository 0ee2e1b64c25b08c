package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/warpfetch/internal/cron"
	"github.com/warpdl/warpfetch/internal/server"
	"github.com/warpdl/warpfetch/pkg/cache"
	"github.com/warpdl/warpfetch/pkg/catalog"
	"github.com/warpdl/warpfetch/pkg/credman"
	"github.com/warpdl/warpfetch/pkg/fetch"
	"github.com/warpdl/warpfetch/pkg/logger"
	"github.com/warpdl/warpfetch/pkg/prefetch"
)

// Cron job names.
const (
	jobCatalogRefresh = "catalog-refresh"
	jobCachePrune     = "cache-prune"
)

// DaemonComponents holds everything the daemon runs. Close releases them in
// reverse order of construction.
type DaemonComponents struct {
	Cache     *cache.Cache
	List      *catalog.List
	Refresher *catalog.Refresher
	Executor  *fetch.Executor
	Scheduler *prefetch.Scheduler
	Server    *server.Server
	Cron      *cron.Scheduler

	log      logger.Logger
	stopCron context.CancelFunc
}

func (c *DaemonComponents) Close() error {
	c.log.Info("shutting down daemon")
	if c.stopCron != nil {
		c.stopCron()
	}
	if c.Scheduler != nil {
		c.Scheduler.Close()
	}
	var errs []error
	if c.Executor != nil {
		errs = append(errs, c.Executor.Close())
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	c.log.Info("daemon stopped")
	return errors.Join(errs...)
}

// fetchStack is the cache and executor pair shared by daemon and simulate.
type fetchStack struct {
	cache    *cache.Cache
	executor *fetch.Executor
}

func newFetchStack(cfg *fetchConfig, list *catalog.List, handlers *fetch.Handlers, log logger.Logger) (*fetchStack, error) {
	if err := os.MkdirAll(cfg.cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	c, err := cache.Open(cache.Options{
		Fs:     afero.NewOsFs(),
		Dir:    cfg.cacheDir,
		DBPath: filepath.Join(cfg.cacheDir, "index.db"),
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	client, err := fetch.NewProxyClient(cfg.proxy, cfg.timeout)
	if err != nil {
		c.Close()
		return nil, err
	}
	exec, err := fetch.NewExecutor(fetch.ExecutorOptions{
		Router:        fetch.NewSchemeRouter(client, afero.NewOsFs()),
		Catalog:       list,
		Cache:         c,
		MaxConcurrent: cfg.concurrency,
		Retry:         cfg.retryConfig(),
		Fetch:         cfg.fetchOptions(credman.NewStore()),
		Handlers:      handlers,
		Logger:        log,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	return &fetchStack{cache: c, executor: exec}, nil
}

// initDaemonComponents builds the daemon from cfg. The catalog is loaded
// once before serving; a failed first load is fatal.
var initDaemonComponents = func(cfg *daemonConfig, log logger.Logger) (*DaemonComponents, error) {
	src, err := catalog.NewSource(cfg.catalogPath, log)
	if err != nil {
		return nil, err
	}
	list := catalog.NewList(nil)
	refresher := catalog.NewRefresher(src, list, cfg.catalogPath, log)
	if err := refresher.Refresh(context.Background()); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	notifier := server.NewRPCNotifier(log)
	handlers := notifier.FetchHandlers(&fetch.Handlers{
		OnStart: func(index int, url string, size int64) {
			if cfg.debug {
				log.Info("fetch #%d: %s (%d bytes)", index, url, size)
			}
		},
		OnError: func(index int, url string, err error) {
			log.Warning("fetch #%d failed: %s: %v", index, url, err)
		},
	})
	stack, err := newFetchStack(&cfg.fetchConfig, list, handlers, log)
	if err != nil {
		return nil, err
	}

	sched := prefetch.New(notifier.Sink(stack.executor), list,
		prefetch.WithWindowSize(cfg.window),
		prefetch.WithDelay(cfg.delay),
		prefetch.WithLogger(log),
	)

	srv := server.New(&server.RPCConfig{
		Secret:    cfg.secret,
		Version:   currentBuildArgs.Version,
		Commit:    currentBuildArgs.Commit,
		BuildType: currentBuildArgs.BuildType,
	}, server.Deps{
		Viewport:   sched,
		Prefetcher: stack.executor,
		Store:      stack.cache,
		Catalog:    refresher,
		Notifier:   notifier,
		Logger:     log,
	})

	comps := &DaemonComponents{
		Cache:     stack.cache,
		List:      list,
		Refresher: refresher,
		Executor:  stack.executor,
		Scheduler: sched,
		Server:    srv,
		log:       log,
	}
	if err := comps.startCron(cfg); err != nil {
		comps.Close()
		return nil, err
	}
	return comps, nil
}

func (c *DaemonComponents) startCron(cfg *daemonConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	c.stopCron = cancel
	c.Cron = cron.New(ctx, c.log)
	if err := c.Cron.Add(cron.Job{
		Name: jobCatalogRefresh,
		Expr: cfg.refreshCron,
		Run:  c.Refresher.Refresh,
	}); err != nil {
		return fmt.Errorf("--refresh-cron: %w", err)
	}
	if cfg.cacheTTL <= 0 {
		return nil
	}
	ttl := cfg.cacheTTL
	if err := c.Cron.Add(cron.Job{
		Name: jobCachePrune,
		Expr: cfg.pruneCron,
		Run: func(context.Context) error {
			n, err := c.Cache.Prune(time.Now().Add(-ttl))
			if err != nil {
				return err
			}
			if n > 0 {
				c.log.Info("cache: pruned %d entries older than %s", n, ttl)
			}
			return nil
		},
	}); err != nil {
		return fmt.Errorf("--prune-cron: %w", err)
	}
	return nil
}

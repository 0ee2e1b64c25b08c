package cmd

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpfetch/common"
	"github.com/warpdl/warpfetch/internal/server"
	"github.com/warpdl/warpfetch/pkg/fetch"
	"github.com/warpdl/warpfetch/pkg/logger"
)

// fetchConfig holds the settings shared by daemon and simulate.
type fetchConfig struct {
	window      int
	delay       time.Duration
	concurrency int
	rateLimit   int64
	retries     int
	cacheDir    string
	proxy       string
	timeout     time.Duration
	userAgent   string
	sshKey      string
	knownHosts  string
	debug       bool
}

type daemonConfig struct {
	fetchConfig
	catalogPath     string
	cacheTTL        time.Duration
	refreshCron     string
	pruneCron       string
	port            int
	socket          string
	secret          string
	shutdownTimeout time.Duration
	logFile         string
}

func fetchConfigFromContext(ctx *cli.Context) (fetchConfig, error) {
	cfg := fetchConfig{
		window:      ctx.Int("window"),
		delay:       ctx.Duration("delay"),
		concurrency: ctx.Int("concurrency"),
		retries:     ctx.Int("retries"),
		cacheDir:    ctx.String("cache-dir"),
		proxy:       ctx.String("proxy"),
		timeout:     ctx.Duration("timeout"),
		userAgent:   ctx.String("user-agent"),
		sshKey:      ctx.String("ssh-key"),
		knownHosts:  ctx.String("known-hosts"),
		debug:       ctx.Bool("debug"),
	}
	if s := ctx.String("rate-limit"); s != "" {
		limit, err := fetch.ParseSpeedLimit(s)
		if err != nil {
			return cfg, fmt.Errorf("--rate-limit: %w", err)
		}
		cfg.rateLimit = limit
	}
	if cfg.retries < 0 {
		return cfg, fmt.Errorf("--retries must not be negative")
	}
	if cfg.proxy != "" {
		if _, err := fetch.ParseProxyURL(cfg.proxy); err != nil {
			return cfg, fmt.Errorf("--proxy: %w", err)
		}
	}
	return cfg, nil
}

func daemonConfigFromContext(ctx *cli.Context) (*daemonConfig, error) {
	fc, err := fetchConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	cfg := &daemonConfig{
		fetchConfig:     fc,
		catalogPath:     ctx.String("catalog"),
		cacheTTL:        ctx.Duration("cache-ttl"),
		refreshCron:     ctx.String("refresh-cron"),
		pruneCron:       ctx.String("prune-cron"),
		port:            ctx.Int("port"),
		socket:          ctx.String("socket"),
		secret:          ctx.String("rpc-secret"),
		shutdownTimeout: ctx.Duration("shutdown-timeout"),
		logFile:         ctx.String("log-file"),
	}
	if cfg.catalogPath == "" {
		return nil, fmt.Errorf("--catalog is required")
	}
	if cfg.cacheDir == "" {
		cfg.cacheDir = filepath.Join(common.ConfigDir(), "cache")
	}
	if cfg.socket == "" {
		cfg.socket = server.DefaultLocalAddress()
	}
	return cfg, nil
}

// fetchOptions builds the options every fetcher is created with.
func (c *fetchConfig) fetchOptions(creds fetch.Credentials) *fetch.Options {
	h := http.Header{}
	if c.userAgent != "" {
		h.Set("User-Agent", c.userAgent)
	}
	return &fetch.Options{
		Headers:        h,
		RateLimit:      c.rateLimit,
		Credentials:    creds,
		KnownHostsPath: c.knownHosts,
		SSHKeyPath:     c.sshKey,
	}
}

func (c *fetchConfig) retryConfig() fetch.RetryConfig {
	rc := fetch.DefaultRetryConfig()
	rc.MaxRetries = c.retries
	return rc
}

// newLogger logs to stderr and, when path is set, to that file as well.
func newLogger(path string) (logger.Logger, error) {
	stderr := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))
	if path == "" {
		return stderr, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	file := logger.NewFileLogger(log.New(f, "", log.LstdFlags), f.Close)
	return logger.NewMultiLogger(stderr, file), nil
}

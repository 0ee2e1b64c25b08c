package cmd

import (
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpfetch/common"
	"github.com/warpdl/warpfetch/pkg/fetch"
	"github.com/warpdl/warpfetch/pkg/prefetch"
)

const (
	DEF_REFRESH_CRON = "*/15 * * * *"
	DEF_PRUNE_CRON   = "0 * * * *"
	DEF_CACHE_TTL    = 24 * time.Hour
	DEF_TIMEOUT      = 30 * time.Second
)

var (
	windowFlag = cli.IntFlag{
		Name:   "window, w",
		Usage:  "number of items to prefetch past the visible region",
		EnvVar: "WARPFETCH_WINDOW",
		Value:  prefetch.DefaultWindowSize,
	}
	delayFlag = cli.DurationFlag{
		Name:   "delay",
		Usage:  "quiet period before the window is recomputed",
		EnvVar: "WARPFETCH_DELAY",
		Value:  prefetch.DefaultDelay,
	}
	concurrencyFlag = cli.IntFlag{
		Name:   "concurrency, c",
		Usage:  "maximum simultaneous fetches",
		EnvVar: "WARPFETCH_CONCURRENCY",
		Value:  fetch.DefaultMaxConcurrent,
	}
	rateLimitFlag = cli.StringFlag{
		Name:   "rate-limit",
		Usage:  "per-fetch speed cap, e.g. 512KB or 1.5MB (0 = unlimited)",
		EnvVar: "WARPFETCH_RATE_LIMIT",
	}
	retriesFlag = cli.IntFlag{
		Name:   "retries",
		Usage:  "retry attempts after a transient failure",
		EnvVar: "WARPFETCH_RETRIES",
		Value:  fetch.DefaultMaxRetries,
	}
	cacheDirFlag = cli.StringFlag{
		Name:   "cache-dir",
		Usage:  "directory for cached items (default <config dir>/cache)",
		EnvVar: "WARPFETCH_CACHE_DIR",
	}
	proxyFlag = cli.StringFlag{
		Name:   "proxy",
		Usage:  "proxy URL (http, https or socks5)",
		EnvVar: "WARPFETCH_PROXY",
	}
	timeoutFlag = cli.DurationFlag{
		Name:   "timeout",
		Usage:  "HTTP request timeout",
		EnvVar: "WARPFETCH_TIMEOUT",
		Value:  DEF_TIMEOUT,
	}
	userAgentFlag = cli.StringFlag{
		Name:   "user-agent",
		Usage:  "User-Agent header for HTTP fetches",
		EnvVar: "WARPFETCH_USER_AGENT",
		Value:  common.AppName,
	}
	sshKeyFlag = cli.StringFlag{
		Name:   "ssh-key",
		Usage:  "private key file for sftp",
		EnvVar: "WARPFETCH_SSH_KEY",
	}

	secretFlag = cli.StringFlag{
		Name:   "rpc-secret",
		Usage:  "bearer token required by every RPC endpoint",
		EnvVar: common.RPCSecretEnv,
	}
	portFlag = cli.IntFlag{
		Name:   "port, p",
		Usage:  "loopback TCP port",
		EnvVar: common.TCPPortEnv,
		Value:  common.DefaultTCPPort,
	}
	socketFlag = cli.StringFlag{
		Name:   "socket",
		Usage:  "local socket path or pipe name (default per platform)",
		EnvVar: common.SocketPathEnv,
	}
	debugFlag = cli.BoolFlag{
		Name:   "debug",
		Usage:  "verbose logging",
		EnvVar: common.DebugEnv,
	}
)

var daemonFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "catalog",
		Usage:  "URL list file, or a .js script defining count() and url(i)",
		EnvVar: "WARPFETCH_CATALOG",
	},
	windowFlag,
	delayFlag,
	concurrencyFlag,
	rateLimitFlag,
	retriesFlag,
	cacheDirFlag,
	cli.DurationFlag{
		Name:   "cache-ttl",
		Usage:  "age after which cached items are pruned",
		EnvVar: "WARPFETCH_CACHE_TTL",
		Value:  DEF_CACHE_TTL,
	},
	cli.StringFlag{
		Name:   "refresh-cron",
		Usage:  "cron expression for reloading the catalog",
		EnvVar: "WARPFETCH_REFRESH_CRON",
		Value:  DEF_REFRESH_CRON,
	},
	cli.StringFlag{
		Name:   "prune-cron",
		Usage:  "cron expression for pruning the cache",
		EnvVar: "WARPFETCH_PRUNE_CRON",
		Value:  DEF_PRUNE_CRON,
	},
	proxyFlag,
	timeoutFlag,
	userAgentFlag,
	sshKeyFlag,
	cli.StringFlag{
		Name:   "known-hosts",
		Usage:  "sftp known_hosts file (default <config dir>/known_hosts)",
		EnvVar: "WARPFETCH_KNOWN_HOSTS",
	},
	portFlag,
	socketFlag,
	secretFlag,
	cli.DurationFlag{
		Name:   "shutdown-timeout",
		Usage:  "how long to wait for fetches to stop on exit",
		EnvVar: "WARPFETCH_SHUTDOWN_TIMEOUT",
		Value:  10 * time.Second,
	},
	cli.StringFlag{
		Name:   "log-file",
		Usage:  "also write logs to this file",
		EnvVar: "WARPFETCH_LOG_FILE",
	},
	debugFlag,
}

var simulateFlags = []cli.Flag{
	windowFlag,
	delayFlag,
	concurrencyFlag,
	rateLimitFlag,
	retriesFlag,
	cacheDirFlag,
	proxyFlag,
	timeoutFlag,
	userAgentFlag,
	sshKeyFlag,
	cli.IntFlag{
		Name:  "viewport",
		Usage: "number of items visible at once",
		Value: 5,
	},
	cli.IntFlag{
		Name:  "step",
		Usage: "items scrolled per tick; negative scrolls up from the end",
		Value: 3,
	},
	cli.IntFlag{
		Name:  "ticks",
		Usage: "number of scroll steps (0 = until the end of the catalog)",
	},
	cli.DurationFlag{
		Name:  "interval",
		Usage: "time between scroll steps",
		Value: 500 * time.Millisecond,
	},
	debugFlag,
}

var clientFlags = []cli.Flag{
	portFlag,
	socketFlag,
	secretFlag,
	debugFlag,
}

var credsSetFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "password",
		Usage:  "password to store (read from stdin when omitted)",
		EnvVar: "WARPFETCH_PASSWORD",
	},
}

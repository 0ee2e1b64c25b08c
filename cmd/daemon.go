package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"github.com/warpdl/warpfetch/cmd/common"
	daemonpkg "github.com/warpdl/warpfetch/internal/daemon"
)

func daemon(ctx *cli.Context) error {
	cfg, err := daemonConfigFromContext(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	log, err := newLogger(cfg.logFile)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "logger", err)
		return err
	}
	defer log.Close()
	if cfg.secret == "" {
		log.Warning("no RPC secret set; every request will be rejected (use --rpc-secret)")
	}

	comps, err := initDaemonComponents(cfg, log)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "init", err)
		return err
	}

	runner := daemonpkg.New(&daemonpkg.Config{
		Port:            cfg.port,
		LocalAddress:    cfg.socket,
		ShutdownTimeout: cfg.shutdownTimeout,
	}, &daemonpkg.Dependencies{
		Server:       comps.Server,
		ShutdownFunc: comps.Close,
		Logger:       log,
	})

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("daemon started: %d catalog items, window %d", comps.List.Len(), cfg.window)
	err = runner.Start(sigCtx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

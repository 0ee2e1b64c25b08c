package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpfetch/cmd/common"
	"github.com/warpdl/warpfetch/internal/server"
	"github.com/warpdl/warpfetch/pkg/fetchcli"
)

const clientTimeout = 10 * time.Second

// newClient is swapped in tests.
var newClient = func(ctx *cli.Context) (*fetchcli.Client, error) {
	socket := ctx.String("socket")
	if socket == "" {
		socket = server.DefaultLocalAddress()
	}
	opts := fetchcli.Options{
		Secret:       ctx.String("rpc-secret"),
		Port:         ctx.Int("port"),
		LocalAddress: socket,
	}
	if ctx.Bool("debug") {
		opts.Debugf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "[debug] "+format+"\n", args...)
		}
	}
	return fetchcli.New(opts)
}

func parseIndices(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no indices given")
	}
	out := make([]int, 0, len(args))
	for _, a := range args {
		i, err := strconv.Atoi(a)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid index %q", a)
		}
		out = append(out, i)
	}
	return out, nil
}

func appear(ctx *cli.Context) error {
	return sendIndices(ctx, "appear", func(c *fetchcli.Client, cctx context.Context, i int) error {
		return c.Appear(cctx, i)
	})
}

func disappear(ctx *cli.Context) error {
	return sendIndices(ctx, "disappear", func(c *fetchcli.Client, cctx context.Context, i int) error {
		return c.Disappear(cctx, i)
	})
}

func sendIndices(ctx *cli.Context, name string, send func(*fetchcli.Client, context.Context, int) error) error {
	indices, err := parseIndices(ctx.Args())
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, name, "new_client", err)
		return err
	}
	defer client.Close()
	cctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()
	for _, i := range indices {
		if err := send(client, cctx, i); err != nil {
			common.PrintRuntimeErr(ctx, name, strconv.Itoa(i), err)
			return err
		}
	}
	return nil
}

func status(ctx *cli.Context) error {
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "new_client", err)
		return err
	}
	defer client.Close()
	cctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	vp, err := client.Status(cctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "viewport", err)
		return err
	}
	stats, err := client.Stats(cctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "stats", err)
		return err
	}
	cat, err := client.Catalog(cctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "catalog", err)
		return err
	}

	w := ctx.App.Writer
	fmt.Fprintf(w, "Visible:  %s\n", formatIndices(vp.Visible))
	fmt.Fprintf(w, "Window:   [%d, %d)", vp.Window.Lo, vp.Window.Hi)
	if vp.Pending {
		fmt.Fprint(w, " (recompute pending)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Catalog:  %d items from %s", cat.Items, cat.Source)
	if !cat.LastRefresh.IsZero() {
		fmt.Fprintf(w, ", refreshed %s", cat.LastRefresh.Format(time.RFC3339))
	}
	fmt.Fprintln(w)
	if cat.LastError != "" {
		fmt.Fprintf(w, "          last refresh failed: %s\n", cat.LastError)
	}
	f := stats.Fetch
	fmt.Fprintf(w, "Fetches:  %d active, %d waiting", f.Active, f.Waiting)
	if f.Paused {
		fmt.Fprint(w, " (paused)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "          %d completed, %d failed, %d cancelled, %d skipped\n",
		f.Completed, f.Failed, f.Cancelled, f.Skipped)
	fmt.Fprintf(w, "Cache:    %d entries, %d bytes, %d writing\n",
		stats.Cache.Entries, stats.Cache.Bytes, stats.Cache.Writing)
	return nil
}

func formatIndices(indices []int) string {
	if len(indices) == 0 {
		return "none"
	}
	parts := make([]string, len(indices))
	for i, v := range indices {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

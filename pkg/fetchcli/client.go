// Package fetchcli is a JSON-RPC client for the warpfetch daemon.
package fetchcli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/warpfetch/common"
)

const DefaultDialTimeout = 3 * time.Second

// ErrNoSecret is returned by New when no bearer secret is configured.
var ErrNoSecret = errors.New("fetchcli: rpc secret is required")

// Options configures how the client reaches the daemon.
type Options struct {
	Secret string
	// Port is the daemon's loopback TCP port. Zero means common.TCPPort().
	Port int
	// LocalAddress is the Unix socket path or named pipe tried before TCP.
	// Empty skips the local transport.
	LocalAddress string
	DialTimeout  time.Duration
	// Debugf, if set, receives transport selection messages.
	Debugf func(format string, args ...any)
}

// Client issues RPC calls over HTTP. It is safe for concurrent use.
type Client struct {
	rpc *jrpc2.Client
}

// New returns a client. No connection is made until the first call.
func New(opts Options) (*Client, error) {
	if opts.Secret == "" {
		return nil, ErrNoSecret
	}
	if opts.Port == 0 {
		opts.Port = common.TCPPort()
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	d := &dialer{opts: opts}
	hc := &http.Client{
		Transport: &bearerTransport{
			secret: opts.Secret,
			next:   &http.Transport{DialContext: d.dial},
		},
	}
	// The host part is ignored by the dialer.
	ch := jhttp.NewChannel("http://"+common.AppName+"/jsonrpc", &jhttp.ChannelOptions{Client: hc})
	return &Client{rpc: jrpc2.NewClient(ch, nil)}, nil
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	if err := c.rpc.CallResult(ctx, method, params, result); err != nil {
		return fmt.Errorf("fetchcli: %s: %w", method, err)
	}
	return nil
}

func (c *Client) Version(ctx context.Context) (*common.VersionResult, error) {
	var res common.VersionResult
	if err := c.call(ctx, common.MethodVersion, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Appear reports index as visible.
func (c *Client) Appear(ctx context.Context, index int) error {
	return c.call(ctx, common.MethodAppear, &common.IndexParams{Index: index}, &common.EmptyResult{})
}

// Disappear reports index as no longer visible.
func (c *Client) Disappear(ctx context.Context, index int) error {
	return c.call(ctx, common.MethodDisappear, &common.IndexParams{Index: index}, &common.EmptyResult{})
}

// Status returns the visible set and current prefetch window.
func (c *Client) Status(ctx context.Context) (*common.ViewportStatus, error) {
	var res common.ViewportStatus
	if err := c.call(ctx, common.MethodViewport, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Catalog(ctx context.Context) (*common.CatalogStatus, error) {
	var res common.CatalogStatus
	if err := c.call(ctx, common.MethodCatalogStatus, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Stats returns executor and cache counters.
func (c *Client) Stats(ctx context.Context) (*common.StatsResult, error) {
	var res common.StatsResult
	if err := c.call(ctx, common.MethodStats, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Pause(ctx context.Context) error {
	return c.call(ctx, common.MethodPause, nil, &common.EmptyResult{})
}

func (c *Client) Resume(ctx context.Context) error {
	return c.call(ctx, common.MethodResume, nil, &common.EmptyResult{})
}

// Prune drops cache entries fetched more than age ago and returns how many
// were removed.
func (c *Client) Prune(ctx context.Context, age time.Duration) (int, error) {
	var res common.PruneResult
	params := &common.PruneParams{OlderThanSeconds: int64(age / time.Second)}
	if err := c.call(ctx, common.MethodPrune, params, &res); err != nil {
		return 0, err
	}
	return res.Removed, nil
}

type bearerTransport struct {
	secret string
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.secret)
	return t.next.RoundTrip(req)
}

type dialer struct {
	opts Options
}

// dial prefers the local socket and falls back to loopback TCP.
func (d *dialer) dial(ctx context.Context, _, _ string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.DialTimeout)
	defer cancel()
	var localErr error
	if d.opts.LocalAddress != "" {
		conn, err := dialLocal(ctx, d.opts.LocalAddress)
		if err == nil {
			d.debugf("connected via %s", d.opts.LocalAddress)
			return conn, nil
		}
		localErr = err
		d.debugf("local socket %s failed: %v, falling back to TCP", d.opts.LocalAddress, err)
	}
	addr := fmt.Sprintf("%s:%d", common.TCPHost, d.opts.Port)
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		if localErr != nil {
			return nil, fmt.Errorf("failed to connect: local socket error: %v; tcp error: %w", localErr, err)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	d.debugf("connected via tcp %s", addr)
	return conn, nil
}

func (d *dialer) debugf(format string, args ...any) {
	if d.opts.Debugf != nil {
		d.opts.Debugf(format, args...)
	}
}

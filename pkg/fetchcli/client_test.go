package fetchcli

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/warpdl/warpfetch/internal/server"
	"github.com/warpdl/warpfetch/pkg/cache"
	"github.com/warpdl/warpfetch/pkg/fetch"
	"github.com/warpdl/warpfetch/pkg/prefetch"
)

const secret = "cli-secret"

type viewport struct {
	mu      sync.Mutex
	visible map[int]bool
}

func (v *viewport) OnAppear(i int) {
	v.mu.Lock()
	v.visible[i] = true
	v.mu.Unlock()
}

func (v *viewport) OnDisappear(i int) {
	v.mu.Lock()
	delete(v.visible, i)
	v.mu.Unlock()
}

func (v *viewport) Visible() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []int
	for i := 0; i < 100; i++ {
		if v.visible[i] {
			out = append(out, i)
		}
	}
	return out
}

func (v *viewport) Window() prefetch.Range { return prefetch.Range{Lo: 10, Hi: 22} }
func (v *viewport) Pending() bool          { return false }

type prefetcher struct{ paused bool }

func (p *prefetcher) Stats() fetch.Stats { return fetch.Stats{Active: 1, Paused: p.paused} }
func (p *prefetcher) Pause()             { p.paused = true }
func (p *prefetcher) Resume()            { p.paused = false }

type store struct{}

func (store) Stats() (cache.Stats, error)  { return cache.Stats{Entries: 3}, nil }
func (store) Prune(time.Time) (int, error) { return 2, nil }

func newDaemon(t *testing.T) (*viewport, int) {
	t.Helper()
	vp := &viewport{visible: make(map[int]bool)}
	srv := server.New(&server.RPCConfig{Secret: secret, Version: "9.9.9"}, server.Deps{
		Viewport:   vp,
		Prefetcher: &prefetcher{},
		Store:      store{},
	})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	_, portStr, _ := net.SplitHostPort(hs.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return vp, port
}

func newClient(t *testing.T, opts Options) *Client {
	t.Helper()
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_RequiresSecret(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("err = %v", err)
	}
}

func TestClient_Calls(t *testing.T) {
	vp, port := newDaemon(t)
	c := newClient(t, Options{Secret: secret, Port: port})
	ctx := context.Background()

	v, err := c.Version(ctx)
	if err != nil || v.Version != "9.9.9" {
		t.Fatalf("Version = %+v, %v", v, err)
	}
	if err := c.Appear(ctx, 4); err != nil {
		t.Fatalf("Appear: %v", err)
	}
	if err := c.Appear(ctx, 5); err != nil {
		t.Fatalf("Appear: %v", err)
	}
	if err := c.Disappear(ctx, 4); err != nil {
		t.Fatalf("Disappear: %v", err)
	}
	if got := vp.Visible(); len(got) != 1 || got[0] != 5 {
		t.Fatalf("visible = %v", got)
	}

	st, err := c.Status(ctx)
	if err != nil || st.Window != (prefetch.Range{Lo: 10, Hi: 22}) {
		t.Fatalf("Status = %+v, %v", st, err)
	}

	if err := c.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	stats, err := c.Stats(ctx)
	if err != nil || !stats.Fetch.Paused || stats.Cache.Entries != 3 {
		t.Fatalf("Stats = %+v, %v", stats, err)
	}
	if err := c.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if n, err := c.Prune(ctx, time.Hour); err != nil || n != 2 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
}

func TestClient_InvalidIndex(t *testing.T) {
	_, port := newDaemon(t)
	c := newClient(t, Options{Secret: secret, Port: port})
	err := c.Appear(context.Background(), -3)
	var rpcErr *jrpc2.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != jrpc2.Code(-32602) {
		t.Fatalf("err = %v, want invalid params", err)
	}
}

func TestClient_CatalogUnavailable(t *testing.T) {
	_, port := newDaemon(t)
	c := newClient(t, Options{Secret: secret, Port: port})
	if _, err := c.Catalog(context.Background()); err == nil {
		t.Fatal("expected error without a catalog")
	}
}

func TestClient_WrongSecret(t *testing.T) {
	_, port := newDaemon(t)
	c := newClient(t, Options{Secret: "wrong", Port: port})
	if _, err := c.Version(context.Background()); err == nil {
		t.Fatal("expected unauthorized error")
	}
}

func TestClient_LocalFallsBackToTCP(t *testing.T) {
	_, port := newDaemon(t)
	var logs []string
	c := newClient(t, Options{
		Secret:       secret,
		Port:         port,
		LocalAddress: "/nonexistent/warpfetch.sock",
		Debugf: func(format string, args ...any) {
			logs = append(logs, format)
		},
	})
	if _, err := c.Version(context.Background()); err != nil {
		t.Fatalf("Version: %v", err)
	}
	if len(logs) < 2 {
		t.Fatalf("debug logs = %v", logs)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	c := newClient(t, Options{Secret: secret, Port: port, DialTimeout: time.Second})
	if _, err := c.Version(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}

package cmd

import (
	"fmt"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpfetch/pkg/fetchcli"
	"github.com/warpdl/warpfetch/pkg/logger"
)

const testSecret = "cmd-secret"

// writeCatalog creates n small files and a catalog listing them as file URLs.
func writeCatalog(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	for i := 0; i < n; i++ {
		p := filepath.Join(dir, fmt.Sprintf("item-%d.bin", i))
		if err := os.WriteFile(p, []byte(strings.Repeat("x", 64*(i+1))), 0644); err != nil {
			t.Fatal(err)
		}
		fmt.Fprintf(&b, "file://%s\n", p)
	}
	path := filepath.Join(dir, "catalog.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testDaemonConfig(t *testing.T, catalogPath string) *daemonConfig {
	t.Helper()
	return &daemonConfig{
		fetchConfig: fetchConfig{
			window:      2,
			delay:       5 * time.Millisecond,
			concurrency: 2,
			cacheDir:    t.TempDir(),
			timeout:     time.Second,
		},
		catalogPath: catalogPath,
		cacheTTL:    time.Hour,
		refreshCron: DEF_REFRESH_CRON,
		pruneCron:   DEF_PRUNE_CRON,
		secret:      testSecret,
	}
}

func newTestComponents(t *testing.T, n int) *DaemonComponents {
	t.Helper()
	comps, err := initDaemonComponents(testDaemonConfig(t, writeCatalog(t, n)), logger.NewNopLogger())
	if err != nil {
		t.Fatalf("initDaemonComponents: %v", err)
	}
	t.Cleanup(func() { _ = comps.Close() })
	return comps
}

// serveComponents exposes comps over loopback TCP and points newClient at it.
func serveComponents(t *testing.T, comps *DaemonComponents) {
	t.Helper()
	hs := httptest.NewServer(comps.Server.Handler())
	t.Cleanup(hs.Close)
	_, portStr, _ := net.SplitHostPort(hs.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	old := newClient
	newClient = func(*cli.Context) (*fetchcli.Client, error) {
		return fetchcli.New(fetchcli.Options{
			Secret:       testSecret,
			Port:         port,
			LocalAddress: filepath.Join(t.TempDir(), "absent.sock"),
		})
	}
	t.Cleanup(func() { newClient = old })
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestInitDaemonComponents(t *testing.T) {
	comps := newTestComponents(t, 3)
	if comps.List.Len() != 3 {
		t.Fatalf("catalog items = %d, want 3", comps.List.Len())
	}
	st := comps.Refresher.Status()
	if st.Items != 3 || st.LastError != "" {
		t.Fatalf("refresher status = %+v", st)
	}
	if comps.Cron == nil {
		t.Fatal("cron scheduler not started")
	}
}

func TestInitDaemonComponentsBadCatalog(t *testing.T) {
	cfg := testDaemonConfig(t, filepath.Join(t.TempDir(), "missing.txt"))
	if _, err := initDaemonComponents(cfg, logger.NewNopLogger()); err == nil {
		t.Fatal("expected error for missing catalog")
	}
}

func TestInitDaemonComponentsBadCron(t *testing.T) {
	cfg := testDaemonConfig(t, writeCatalog(t, 1))
	cfg.pruneCron = "not a cron"
	_, err := initDaemonComponents(cfg, logger.NewNopLogger())
	if err == nil || !strings.Contains(err.Error(), "--prune-cron") {
		t.Fatalf("err = %v, want --prune-cron error", err)
	}
}

func TestAppearPrefetchesWindow(t *testing.T) {
	comps := newTestComponents(t, 4)
	serveComponents(t, comps)

	ctx, _ := newTestContext(t, clientFlags, "0")
	if err := appear(ctx); err != nil {
		t.Fatalf("appear: %v", err)
	}
	waitUntil(t, "window fetched", func() bool {
		return comps.Executor.Stats().Completed == 2
	})
	if w := comps.Scheduler.Window(); w.Lo != 1 || w.Hi != 3 {
		t.Fatalf("window = %v, want [1, 3)", w)
	}

	ctx, out := newTestContext(t, clientFlags)
	if err := status(ctx); err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Visible:  0", "Window:   [1, 3)", "Catalog:  4 items", "2 completed", "Cache:    2 entries"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status output missing %q:\n%s", want, out.String())
		}
	}

	ctx, _ = newTestContext(t, clientFlags, "0")
	if err := disappear(ctx); err != nil {
		t.Fatalf("disappear: %v", err)
	}
	waitUntil(t, "viewport cleared", func() bool {
		return len(comps.Scheduler.Visible()) == 0
	})
}

func TestAppearInvalidArgsSkipsDaemon(t *testing.T) {
	old := newClient
	newClient = func(*cli.Context) (*fetchcli.Client, error) {
		t.Fatal("client created for invalid arguments")
		return nil, nil
	}
	t.Cleanup(func() { newClient = old })

	ctx, _ := newTestContext(t, clientFlags, "x")
	if err := appear(ctx); err != nil {
		t.Fatalf("usage errors are reported, not returned: %v", err)
	}
}

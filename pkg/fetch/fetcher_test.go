package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestSchemeRouter(t *testing.T) {
	r := NewSchemeRouter(nil, afero.NewMemMapFs())

	want := []string{"file", "ftp", "ftps", "http", "https", "sftp"}
	if got := r.Schemes(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Schemes() = %v, want %v", got, want)
	}

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"http", "http://example.com/a", nil},
		{"uppercase scheme", "HTTPS://example.com/a", nil},
		{"ftp", "ftp://example.com/pub/a.bin", nil},
		{"sftp", "sftp://user@example.com/a.bin", nil},
		{"file", "file:///tmp/a.bin", nil},
		{"empty", "", ErrUnsupportedScheme},
		{"no scheme", "example.com/a", ErrUnsupportedScheme},
		{"unknown", "gopher://example.com/a", ErrUnsupportedScheme},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := r.NewFetcher(tt.url, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || f == nil {
				t.Fatalf("NewFetcher(%q) = %v, %v", tt.url, f, err)
			}
		})
	}

	_, err := r.NewFetcher("gopher://example.com/a", nil)
	if err == nil || !strings.Contains(err.Error(), "supported: file, ftp") {
		t.Errorf("error should list supported schemes, got %v", err)
	}
}

func TestSchemeRouter_Register(t *testing.T) {
	r := NewSchemeRouter(nil, nil)
	called := false
	r.Register("MEM", func(rawURL string, opts *Options) (Fetcher, error) {
		called = true
		return nil, nil
	})
	r.NewFetcher("mem://x", nil)
	if !called {
		t.Error("registered factory was not used")
	}
}

func TestHTTPFetcher(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Token")
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Length", "5")
			if r.Method == http.MethodGet {
				w.Write([]byte("hello"))
			}
		case "/nohead":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.Write([]byte("body"))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	opts := &Options{Headers: http.Header{"X-Token": []string{"abc"}}}
	r := NewSchemeRouter(srv.Client(), nil)
	ctx := context.Background()

	t.Run("probe and fetch", func(t *testing.T) {
		f, _ := r.NewFetcher(srv.URL+"/ok", opts)
		if _, err := f.Fetch(ctx, &bytes.Buffer{}, nil); !errors.Is(err, ErrProbeRequired) {
			t.Errorf("Fetch before Probe = %v", err)
		}
		p, err := f.Probe(ctx)
		if err != nil || p.ContentLength != 5 {
			t.Fatalf("Probe = %+v, %v", p, err)
		}
		var buf bytes.Buffer
		progress := 0
		n, err := f.Fetch(ctx, &buf, func(k int) { progress += k })
		if err != nil || n != 5 || buf.String() != "hello" || progress != 5 {
			t.Errorf("Fetch = %d, %v, body %q, progress %d", n, err, buf.String(), progress)
		}
		if gotHeader != "abc" {
			t.Errorf("configured header not sent, got %q", gotHeader)
		}
	})

	t.Run("HEAD not allowed leaves size unknown", func(t *testing.T) {
		f, _ := r.NewFetcher(srv.URL+"/nohead", opts)
		p, err := f.Probe(ctx)
		if err != nil || p.ContentLength != -1 {
			t.Errorf("Probe = %+v, %v", p, err)
		}
	})

	t.Run("status classification", func(t *testing.T) {
		f, _ := r.NewFetcher(srv.URL+"/missing", opts)
		_, err := f.Probe(ctx)
		var fe *FetchError
		if !errors.As(err, &fe) || fe.IsTransient() {
			t.Errorf("404 should be permanent, got %v", err)
		}
		f, _ = r.NewFetcher(srv.URL+"/busy", opts)
		_, err = f.Probe(ctx)
		if !errors.As(err, &fe) || !fe.IsTransient() {
			t.Errorf("503 should be transient, got %v", err)
		}
		if ClassifyError(err) != ErrCategoryThrottled {
			t.Errorf("503 should classify as throttled, got %v", ClassifyError(err))
		}
	})
}

func TestFileFetcher(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/mirror/a.bin", []byte("local bytes"), 0644)
	fs.MkdirAll("/mirror/dir", 0755)
	r := NewSchemeRouter(nil, fs)
	ctx := context.Background()

	f, _ := r.NewFetcher("file:///mirror/a.bin", nil)
	p, err := f.Probe(ctx)
	if err != nil || p.ContentLength != 11 {
		t.Fatalf("Probe = %+v, %v", p, err)
	}
	var buf bytes.Buffer
	if _, err := f.Fetch(ctx, &buf, nil); err != nil || buf.String() != "local bytes" {
		t.Errorf("Fetch = %q, %v", buf.String(), err)
	}

	for _, u := range []string{"file:///mirror/missing", "file:///mirror/dir"} {
		f, _ := r.NewFetcher(u, nil)
		if _, err := f.Probe(ctx); err == nil {
			t.Errorf("Probe(%s) should fail", u)
		}
	}
}

func TestFetchCancelledMidway(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/big", bytes.Repeat([]byte{1}, 1<<16), 0644)
	f, _ := NewSchemeRouter(nil, fs).NewFetcher("file:///big", nil)
	ctx, cancel := context.WithCancel(context.Background())
	f.Probe(ctx)
	cancel()
	if _, err := f.Fetch(ctx, &bytes.Buffer{}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch on cancelled context = %v", err)
	}
}

func TestStripURLCredentials(t *testing.T) {
	got := StripURLCredentials("ftp://user:pw@host/pub/a")
	if got != "ftp://host/pub/a" {
		t.Errorf("StripURLCredentials = %q", got)
	}
}

func TestProxyClient(t *testing.T) {
	tests := []struct {
		in      string
		wantErr error
	}{
		{"", nil},
		{"http://proxy:8080", nil},
		{"socks5://u:p@proxy:1080", nil},
		{"ftp://proxy:21", ErrUnsupportedProxy},
		{"proxy:8080", ErrInvalidProxyURL},
	}
	for _, tt := range tests {
		c, err := NewProxyClient(tt.in, 0)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewProxyClient(%q) = %v, want %v", tt.in, err, tt.wantErr)
			}
			continue
		}
		if err != nil || c == nil || c.CheckRedirect == nil {
			t.Errorf("NewProxyClient(%q) = %v, %v", tt.in, c, err)
		}
	}
	if _, err := ParseProxyURL(""); !errors.Is(err, ErrEmptyProxyURL) {
		t.Errorf("ParseProxyURL(\"\") = %v", err)
	}
}

func TestRedirectPolicy(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("X-Token")))
	}))
	defer final.Close()
	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer hop.Close()

	client, _ := NewProxyClient("", 0)
	req, _ := http.NewRequest(http.MethodGet, hop.URL, nil)
	req.Header.Set("X-Token", "secret")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if buf.Len() != 0 {
		t.Errorf("custom header leaked across origins: %q", buf.String())
	}
}

package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	ftpserver "github.com/fclairamb/ftpserverlib"
	"github.com/spf13/afero"
)

// testFTPDriver serves an afero filesystem to anonymous and testuser logins.
type testFTPDriver struct {
	fs       afero.Fs
	listener net.Listener
}

func (d *testFTPDriver) GetSettings() (*ftpserver.Settings, error) {
	return &ftpserver.Settings{Listener: d.listener, IdleTimeout: 30}, nil
}

func (d *testFTPDriver) ClientConnected(_ ftpserver.ClientContext) (string, error) {
	return "test server", nil
}

func (d *testFTPDriver) ClientDisconnected(_ ftpserver.ClientContext) {}

func (d *testFTPDriver) AuthUser(_ ftpserver.ClientContext, user, pass string) (ftpserver.ClientDriver, error) {
	if (user == "anonymous" && pass == "anonymous") || (user == "testuser" && pass == "testpass") {
		return afero.NewBasePathFs(d.fs, "/"), nil
	}
	return nil, fmt.Errorf("invalid credentials")
}

func (d *testFTPDriver) GetTLSConfig() (*tls.Config, error) {
	return nil, nil
}

func startTestFTPServer(t *testing.T, files map[string][]byte) string {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fs, name, content, 0644); err != nil {
			t.Fatal(err)
		}
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	server := ftpserver.NewFtpServer(&testFTPDriver{fs: fs, listener: ln})
	go server.ListenAndServe()
	t.Cleanup(func() { server.Stop() })
	time.Sleep(50 * time.Millisecond)
	return ln.Addr().String()
}

type staticCredentials map[string]string

func (c staticCredentials) Password(host, user string) (string, bool, error) {
	p, ok := c[user+"@"+host]
	return p, ok, nil
}

func TestFTPFactory(t *testing.T) {
	f, err := newFTPFetcher("ftp://example.com/pub/a.iso", &Options{})
	if err != nil {
		t.Fatal(err)
	}
	ff := f.(*ftpFetcher)
	if ff.host != "example.com:21" || ff.user != "anonymous" || ff.useTLS {
		t.Errorf("unexpected fetcher %+v", ff)
	}
	f, _ = newFTPFetcher("ftps://u:p@example.com:990/a", &Options{})
	if ff := f.(*ftpFetcher); ff.host != "example.com:990" || !ff.useTLS || ff.password != "p" {
		t.Errorf("unexpected ftps fetcher %+v", ff)
	}
	if _, err := newFTPFetcher("ftp://example.com/", &Options{}); err == nil {
		t.Error("directory path should be rejected")
	}
}

func TestFTPFetcher(t *testing.T) {
	content := bytes.Repeat([]byte{0xAB}, 4096)
	addr := startTestFTPServer(t, map[string][]byte{"/pub/file.bin": content})
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		f, err := newFTPFetcher("ftp://"+addr+"/pub/file.bin", &Options{})
		if err != nil {
			t.Fatal(err)
		}
		p, err := f.Probe(ctx)
		if err != nil || p.ContentLength != int64(len(content)) {
			t.Fatalf("Probe = %+v, %v", p, err)
		}
		var buf bytes.Buffer
		n, err := f.Fetch(ctx, &buf, nil)
		if err != nil || n != int64(len(content)) || !bytes.Equal(buf.Bytes(), content) {
			t.Errorf("Fetch = %d, %v", n, err)
		}
	})

	t.Run("stored credentials", func(t *testing.T) {
		host, _, _ := net.SplitHostPort(addr)
		opts := &Options{Credentials: staticCredentials{"testuser@" + host: "testpass"}}
		f, err := newFTPFetcher("ftp://testuser@"+addr+"/pub/file.bin", opts)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Probe(ctx); err != nil {
			t.Errorf("Probe with stored password: %v", err)
		}
	})

	t.Run("bad password is permanent", func(t *testing.T) {
		f, _ := newFTPFetcher("ftp://testuser:wrong@"+addr+"/pub/file.bin", &Options{})
		_, err := f.Probe(ctx)
		var fe *FetchError
		if !errors.As(err, &fe) || fe.IsTransient() {
			t.Errorf("login failure should be permanent, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		f, _ := newFTPFetcher("ftp://"+addr+"/pub/nope.bin", &Options{})
		if _, err := f.Probe(ctx); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

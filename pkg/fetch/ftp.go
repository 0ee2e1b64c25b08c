package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

var _ Fetcher = (*ftpFetcher)(nil)

// ftpFetcher reads a single file over FTP, or explicit-TLS FTP for ftps://.
// Without userinfo it logs in anonymously.
type ftpFetcher struct {
	opts     *Options
	host     string
	path     string
	user     string
	password string
	useTLS   bool
	size     int64
	probed   bool
}

func newFTPFetcher(rawURL string, opts *Options) (Fetcher, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewPermanentError("ftp", "factory:parse", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "ftp" && scheme != "ftps" {
		return nil, NewPermanentError("ftp", "factory:scheme",
			fmt.Errorf("unsupported scheme %q, expected ftp or ftps", scheme))
	}
	if parsed.Path == "" || strings.HasSuffix(parsed.Path, "/") {
		return nil, NewPermanentError("ftp", "factory:path",
			fmt.Errorf("file path is required, got %q", parsed.Path))
	}

	user, password := "anonymous", "anonymous"
	if parsed.User != nil {
		user = parsed.User.Username()
		password, err = lookupPassword(parsed, opts.Credentials)
		if err != nil {
			return nil, NewPermanentError("ftp", "factory:credentials", err)
		}
	}

	host := parsed.Host
	if parsed.Port() == "" {
		host = net.JoinHostPort(parsed.Hostname(), "21")
	}
	return &ftpFetcher{
		opts:     opts,
		host:     host,
		path:     parsed.Path,
		user:     user,
		password: password,
		useTLS:   scheme == "ftps",
	}, nil
}

func (f *ftpFetcher) connect(ctx context.Context) (*ftp.ServerConn, error) {
	dialOpts := []ftp.DialOption{
		ftp.DialWithTimeout(30 * time.Second),
		ftp.DialWithContext(ctx),
	}
	if f.useTLS {
		hostname, _, _ := net.SplitHostPort(f.host)
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(&tls.Config{
			ServerName: hostname,
			MinVersion: tls.VersionTLS12,
		}))
	}
	conn, err := ftp.Dial(f.host, dialOpts...)
	if err != nil {
		return nil, err
	}
	if err := conn.Login(f.user, f.password); err != nil {
		conn.Quit()
		return nil, err
	}
	return conn, nil
}

func (f *ftpFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return ProbeResult{}, classifyFTPError("probe:connect", err)
	}
	defer conn.Quit()

	size, err := conn.FileSize(f.path)
	if err != nil {
		return ProbeResult{}, classifyFTPError("probe:size", err)
	}
	f.size = size
	f.probed = true
	return ProbeResult{ContentLength: size}, nil
}

func (f *ftpFetcher) Fetch(ctx context.Context, w io.Writer, progress func(int)) (int64, error) {
	if !f.probed {
		return 0, ErrProbeRequired
	}
	conn, err := f.connect(ctx)
	if err != nil {
		return 0, classifyFTPError("fetch:connect", err)
	}
	defer conn.Quit()
	// unblock a stalled data connection when the fetch is cancelled
	stop := context.AfterFunc(ctx, func() { conn.Quit() })
	defer stop()

	if err := conn.Type(ftp.TransferTypeBinary); err != nil {
		return 0, NewPermanentError("ftp", "fetch:type", err)
	}
	resp, err := conn.Retr(f.path)
	if err != nil {
		return 0, classifyFTPError("fetch:retr", err)
	}
	defer resp.Close()

	n, err := copyBody(ctx, w, resp, f.opts.RateLimit, progress)
	if err != nil {
		return n, classifyFTPError("fetch:copy", err)
	}
	return n, nil
}

// classifyFTPError treats 4xx replies and network errors as transient and
// everything else as permanent.
func classifyFTPError(op string, err error) *FetchError {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		if tpErr.Code >= 400 && tpErr.Code < 500 {
			return NewTransientError("ftp", op, err)
		}
		return NewPermanentError("ftp", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NewTransientError("ftp", op, err)
	}
	return NewPermanentError("ftp", op, err)
}

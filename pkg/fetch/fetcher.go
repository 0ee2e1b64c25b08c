// Package fetch downloads catalog items into the cache.
//
// A SchemeRouter turns URLs into Fetchers; an Executor receives prefetch
// deltas, queues fetches under a concurrency limit and cancels the ones that
// fall out of the window.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ProbeResult holds metadata discovered before the transfer.
type ProbeResult struct {
	// ContentLength is the size in bytes, -1 when unknown.
	ContentLength int64
}

// Fetcher transfers a single remote object.
//
// Probe must be called before Fetch. Fetch writes the object to w, calls
// progress with the size of every chunk written, and returns the total.
type Fetcher interface {
	Probe(ctx context.Context) (ProbeResult, error)
	Fetch(ctx context.Context, w io.Writer, progress func(n int)) (int64, error)
}

// Credentials looks up stored passwords for URLs that name a user
// without one.
type Credentials interface {
	Password(host, user string) (password string, ok bool, err error)
}

// Options are shared by all fetchers created through a router.
type Options struct {
	// Headers are sent with every HTTP request.
	Headers http.Header
	// RateLimit caps each transfer in bytes per second. 0 is unlimited.
	RateLimit int64
	// Credentials resolves passwords for ftp and sftp URLs. May be nil.
	Credentials Credentials
	// KnownHostsPath is the trust-on-first-use host key file for sftp.
	KnownHostsPath string
	// SSHKeyPath overrides the default private key locations for sftp.
	SSHKeyPath string
}

// FetcherFactory creates a Fetcher for one URL.
type FetcherFactory func(rawURL string, opts *Options) (Fetcher, error)

// SchemeRouter maps URL schemes to factories.
// The zero value is not usable; use NewSchemeRouter.
type SchemeRouter struct {
	routes map[string]FetcherFactory
}

// NewSchemeRouter registers http, https, ftp, ftps, sftp and file.
// file:// URLs are read from fs; a nil fs means the OS filesystem.
func NewSchemeRouter(client *http.Client, fs afero.Fs) *SchemeRouter {
	if client == nil {
		client = http.DefaultClient
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	r := &SchemeRouter{routes: make(map[string]FetcherFactory)}

	httpFactory := func(rawURL string, opts *Options) (Fetcher, error) {
		return newHTTPFetcher(rawURL, opts, client)
	}
	r.routes["http"] = httpFactory
	r.routes["https"] = httpFactory
	r.routes["ftp"] = newFTPFetcher
	r.routes["ftps"] = newFTPFetcher
	r.routes["sftp"] = newSFTPFetcher
	r.routes["file"] = func(rawURL string, opts *Options) (Fetcher, error) {
		return newFileFetcher(rawURL, opts, fs)
	}
	return r
}

// Register adds or replaces the factory for scheme.
func (r *SchemeRouter) Register(scheme string, factory FetcherFactory) {
	r.routes[strings.ToLower(scheme)] = factory
}

// NewFetcher creates a Fetcher for rawURL. The scheme match is
// case-insensitive.
func (r *SchemeRouter) NewFetcher(rawURL string, opts *Options) (Fetcher, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrUnsupportedScheme)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		return nil, fmt.Errorf("%w: no scheme in URL %q", ErrUnsupportedScheme, rawURL)
	}
	factory, ok := r.routes[scheme]
	if !ok {
		return nil, fmt.Errorf("%w %q, supported: %s",
			ErrUnsupportedScheme, scheme, strings.Join(r.Schemes(), ", "))
	}
	if opts == nil {
		opts = &Options{}
	}
	return factory(rawURL, opts)
}

// Schemes returns the registered schemes in sorted order.
func (r *SchemeRouter) Schemes() []string {
	schemes := make([]string, 0, len(r.routes))
	for s := range r.routes {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// StripURLCredentials removes userinfo from rawURL for logging.
func StripURLCredentials(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.User = nil
	return parsed.String()
}

// lookupPassword returns the URL password, or the stored one when the URL
// names only a user.
func lookupPassword(u *url.URL, creds Credentials) (string, error) {
	if u.User == nil {
		return "", nil
	}
	if p, ok := u.User.Password(); ok {
		return p, nil
	}
	if creds == nil {
		return "", nil
	}
	p, _, err := creds.Password(u.Hostname(), u.User.Username())
	return p, err
}

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

var _ Fetcher = (*httpFetcher)(nil)

type httpFetcher struct {
	rawURL string
	opts   *Options
	client *http.Client
	probed bool
}

func newHTTPFetcher(rawURL string, opts *Options, client *http.Client) (Fetcher, error) {
	return &httpFetcher{rawURL: rawURL, opts: opts, client: client}, nil
}

func (f *httpFetcher) newRequest(ctx context.Context, method string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, f.rawURL, nil)
	if err != nil {
		return nil, NewPermanentError("http", "request", err)
	}
	for k, vs := range f.opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// Probe issues a HEAD request. Servers that reject HEAD leave the size
// unknown rather than failing the fetch.
func (f *httpFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	req, err := f.newRequest(ctx, http.MethodHead)
	if err != nil {
		return ProbeResult{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return ProbeResult{}, NewTransientError("http", "probe", err)
	}
	resp.Body.Close()
	f.probed = true

	switch {
	case resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented:
		return ProbeResult{ContentLength: -1}, nil
	case resp.StatusCode >= 400:
		return ProbeResult{}, statusError("probe", resp.StatusCode)
	}
	return ProbeResult{ContentLength: resp.ContentLength}, nil
}

func (f *httpFetcher) Fetch(ctx context.Context, w io.Writer, progress func(int)) (int64, error) {
	if !f.probed {
		return 0, ErrProbeRequired
	}
	req, err := f.newRequest(ctx, http.MethodGet)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, NewTransientError("http", "fetch", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, statusError("fetch", resp.StatusCode)
	}
	n, err := copyBody(ctx, w, resp.Body, f.opts.RateLimit, progress)
	if err != nil {
		return n, NewTransientError("http", "fetch:copy", err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, NewTransientError("http", "fetch:copy", io.ErrUnexpectedEOF)
	}
	return n, nil
}

// statusError maps 429 and 5xx to transient failures, other codes to
// permanent ones.
func statusError(op string, code int) *FetchError {
	err := fmt.Errorf("unexpected status %d %s", code, http.StatusText(code))
	if code == http.StatusTooManyRequests || code >= 500 {
		return NewTransientError("http", op, err)
	}
	return NewPermanentError("http", op, err)
}

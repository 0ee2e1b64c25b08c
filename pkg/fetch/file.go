package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/spf13/afero"
)

var _ Fetcher = (*fileFetcher)(nil)

// fileFetcher copies a local file. Mostly useful for mirrors mounted on disk.
type fileFetcher struct {
	opts   *Options
	fs     afero.Fs
	path   string
	probed bool
}

func newFileFetcher(rawURL string, opts *Options, fs afero.Fs) (Fetcher, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewPermanentError("file", "factory:parse", err)
	}
	if parsed.Path == "" {
		return nil, NewPermanentError("file", "factory:path", fmt.Errorf("empty path in %q", rawURL))
	}
	return &fileFetcher{opts: opts, fs: fs, path: parsed.Path}, nil
}

func (f *fileFetcher) Probe(ctx context.Context) (ProbeResult, error) {
	info, err := f.fs.Stat(f.path)
	if err != nil {
		return ProbeResult{}, NewPermanentError("file", "probe", err)
	}
	if info.IsDir() {
		return ProbeResult{}, NewPermanentError("file", "probe", fmt.Errorf("%s is a directory", f.path))
	}
	f.probed = true
	return ProbeResult{ContentLength: info.Size()}, nil
}

func (f *fileFetcher) Fetch(ctx context.Context, w io.Writer, progress func(int)) (int64, error) {
	if !f.probed {
		return 0, ErrProbeRequired
	}
	src, err := f.fs.OpenFile(f.path, os.O_RDONLY, 0)
	if err != nil {
		return 0, NewPermanentError("file", "fetch:open", err)
	}
	defer src.Close()
	n, err := copyBody(ctx, w, src, f.opts.RateLimit, progress)
	if err != nil {
		return n, NewTransientError("file", "fetch:copy", err)
	}
	return n, nil
}

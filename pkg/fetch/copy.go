package fetch

import (
	"context"
	"io"
)

// copyBody streams r into w, rate limited, reporting progress per chunk.
// It stops with ctx.Err() once ctx is done.
func copyBody(ctx context.Context, w io.Writer, r io.Reader, limit int64, progress func(int)) (int64, error) {
	src := io.Reader(&ctxReader{ctx: ctx, r: r})
	if limit > 0 {
		src = NewRateLimitedReader(src, limit)
	}
	dst := w
	if progress != nil {
		dst = &progressWriter{w: w, progress: progress}
	}
	return io.Copy(dst, src)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type progressWriter struct {
	w        io.Writer
	progress func(int)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	if n > 0 {
		pw.progress(n)
	}
	return n, err
}

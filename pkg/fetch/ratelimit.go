package fetch

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	B  int64 = 1
	KB       = 1024 * B
	MB       = 1024 * KB
	GB       = 1024 * MB
)

// RateLimitedReader throttles reads with a token bucket holding at most
// one second of tokens. It starts empty, so there is no initial burst.
type RateLimitedReader struct {
	r     io.Reader
	limit int64

	mu       sync.Mutex
	lastRead time.Time
	tokens   int64
}

// NewRateLimitedReader limits r to limit bytes per second. 0 or negative
// means unlimited.
func NewRateLimitedReader(r io.Reader, limit int64) *RateLimitedReader {
	return &RateLimitedReader{r: r, limit: limit, lastRead: time.Now()}
}

func (r *RateLimitedReader) refillLocked() {
	now := time.Now()
	r.tokens += int64(float64(r.limit) * now.Sub(r.lastRead).Seconds())
	r.lastRead = now
	if r.tokens > r.limit {
		r.tokens = r.limit
	}
}

func (r *RateLimitedReader) Read(b []byte) (int, error) {
	r.mu.Lock()
	limit := r.limit
	if limit <= 0 {
		r.mu.Unlock()
		return r.r.Read(b)
	}

	r.refillLocked()
	want := int64(len(b))
	if want > limit {
		want = limit
	}
	if r.tokens < want {
		wait := time.Duration(float64(time.Second) * float64(want-r.tokens) / float64(limit))
		r.mu.Unlock()
		time.Sleep(wait)
		r.mu.Lock()
		r.refillLocked()
	}
	size := want
	if r.tokens > 0 && size > r.tokens {
		size = r.tokens
	}
	if size <= 0 {
		size = 1
	}
	r.mu.Unlock()

	n, err := r.r.Read(b[:size])

	r.mu.Lock()
	r.tokens -= int64(n)
	r.mu.Unlock()
	return n, err
}

// SetLimit changes the limit for subsequent reads.
func (r *RateLimitedReader) SetLimit(limit int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limit = limit
	if limit > 0 && r.tokens > limit {
		r.tokens = limit
	}
}

// ParseSpeedLimit parses values like "100", "512KB", "1.5mb" or "2G" into
// bytes per second. "0" means unlimited.
func ParseSpeedLimit(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty speed limit")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("invalid speed limit: negative value not allowed in %q", s)
	}
	split := len(s)
	for i, c := range s {
		if (c < '0' || c > '9') && c != '.' {
			split = i
			break
		}
	}
	numStr, unit := s[:split], s[split:]
	if numStr == "" {
		return 0, fmt.Errorf("invalid speed limit: no numeric value in %q", s)
	}
	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid speed limit: %q is not a valid number", numStr)
	}
	var mult int64
	switch unit {
	case "", "B":
		mult = B
	case "K", "KB":
		mult = KB
	case "M", "MB":
		mult = MB
	case "G", "GB":
		mult = GB
	default:
		return 0, fmt.Errorf("invalid speed limit unit: %q (use B, KB, MB, or GB)", unit)
	}
	return int64(num * float64(mult)), nil
}

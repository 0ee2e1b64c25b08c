package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const DefaultMaxRedirects = 10

var (
	ErrEmptyProxyURL         = errors.New("proxy URL cannot be empty")
	ErrUnsupportedProxy      = errors.New("unsupported proxy scheme")
	ErrInvalidProxyURL       = errors.New("invalid proxy URL")
	ErrTooManyRedirects      = errors.New("redirect loop detected")
	ErrCrossProtocolRedirect = errors.New("cross-protocol redirect not supported")
)

var proxySchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"socks5": true,
}

// ParseProxyURL validates a proxy URL.
func ParseProxyURL(proxyURL string) (*url.URL, error) {
	if proxyURL == "" {
		return nil, ErrEmptyProxyURL
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, ErrInvalidProxyURL
	}
	if !proxySchemes[parsed.Scheme] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProxy, parsed.Scheme)
	}
	return parsed, nil
}

// NewProxyClient builds the HTTP client used by http fetchers. An empty
// proxyURL means a direct connection. timeout of 0 disables the overall
// request timeout.
func NewProxyClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	client := &http.Client{
		Timeout:       timeout,
		CheckRedirect: redirectPolicy(DefaultMaxRedirects),
	}
	if proxyURL == "" {
		return client, nil
	}
	parsed, err := ParseProxyURL(proxyURL)
	if err != nil {
		return nil, err
	}
	transport := &http.Transport{}
	if parsed.Scheme == "socks5" {
		var auth *proxy.Auth
		if parsed.User != nil {
			pass, _ := parsed.User.Password()
			auth = &proxy.Auth{User: parsed.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.Dial = dialer.Dial
		}
	} else {
		transport.Proxy = http.ProxyURL(parsed)
	}
	client.Transport = transport
	return client, nil
}

func redirectPolicy(maxRedirects int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: exceeded %d hops (last URL: %s)",
				ErrTooManyRedirects, maxRedirects, via[len(via)-1].URL)
		}
		if len(via) > 0 {
			prev := via[len(via)-1]
			if !isHTTPScheme(req.URL.Scheme) {
				return fmt.Errorf("%w: %s -> %s", ErrCrossProtocolRedirect, prev.URL.Scheme, req.URL.Scheme)
			}
			if prev.URL.Host != req.URL.Host {
				// configured headers may carry tokens for the original host
				for k := range req.Header {
					if k != "User-Agent" && k != "Accept" {
						req.Header.Del(k)
					}
				}
			}
		}
		return nil
	}
}

func isHTTPScheme(s string) bool {
	s = strings.ToLower(s)
	return s == "http" || s == "https"
}

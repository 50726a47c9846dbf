// Package transport construye los *http.Client compartidos por los adapters:
// timeout, user agent fijo y proxy opcional (HTTP/HTTPS o SOCKS5).
package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

const defaultTimeout = 30 * time.Second

// Options configura el cliente HTTP.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	ProxyURL  string // vacío = conexión directa
	CookieJar bool
}

// NewClient crea un http.Client con las opciones dadas.
func NewClient(opts Options) (*http.Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		if err := applyProxy(base, opts.ProxyURL); err != nil {
			return nil, err
		}
	}

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: &userAgentTransport{base: base, ua: opts.UserAgent},
	}
	if opts.CookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("transport.NewClient: cookie jar: %w", err)
		}
		client.Jar = jar
	}
	return client, nil
}

// applyProxy configura el transporte para http(s):// via Proxy y socks5:// via Dial.
func applyProxy(t *http.Transport, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("transport: invalid proxy url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		t.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, &net.Dialer{Timeout: 15 * time.Second})
		if err != nil {
			return fmt.Errorf("transport: socks proxy: %w", err)
		}
		t.Proxy = nil
		if cd, ok := d.(proxy.ContextDialer); ok {
			t.DialContext = cd.DialContext
		} else {
			t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return d.Dial(network, addr)
			}
		}
		return nil
	default:
		return fmt.Errorf("transport: unsupported proxy scheme %q", u.Scheme)
	}
}

// userAgentTransport fija el User-Agent en cada request.
type userAgentTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.ua != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.ua)
	}
	return t.base.RoundTrip(req)
}

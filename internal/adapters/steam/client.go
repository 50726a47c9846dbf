package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/retry"
	"golang.org/x/time/rate"
)

const (
	defaultCommunityURL = "https://steamcommunity.com"
	defaultAPIURL       = "https://api.steampowered.com"

	// CS2
	AppID     uint32 = 730
	ContextID uint64 = 2

	// La comunidad corta con 429 bastante antes que la Web API.
	communityRatePerSec = 1
)

// Credentials son los secretos de la cuenta. Ninguno se loguea.
type Credentials struct {
	SteamID        uint64 // SteamID64
	Username       string
	Password       string
	SharedSecret   string // base64, genera los códigos Steam Guard
	IdentitySecret string // base64, firma las confirmaciones móviles
	APIKey         string // opcional: sin key se usa el access token de la sesión
}

// Options configura el Client. Las URLs solo se sobreescriben en tests.
type Options struct {
	Credentials  Credentials
	HTTPClient   *http.Client // debe tener cookie jar
	CommunityURL string
	APIURL       string
	Now          func() time.Time
}

// Client es el handle de sesión con la red de trading. Lo crea y cierra el
// loop de reconciliación; todos los componentes lo reciben explícitamente.
type Client struct {
	http         *http.Client
	creds        Credentials
	communityURL *url.URL
	apiURL       string
	limiter      *rate.Limiter
	now          func() time.Time
}

// NewClient crea el handle de sesión. No hace llamadas de red.
func NewClient(opts Options) (*Client, error) {
	if opts.HTTPClient == nil || opts.HTTPClient.Jar == nil {
		return nil, fmt.Errorf("steam.NewClient: http client with cookie jar required")
	}
	if opts.CommunityURL == "" {
		opts.CommunityURL = defaultCommunityURL
	}
	if opts.APIURL == "" {
		opts.APIURL = defaultAPIURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cu, err := url.Parse(opts.CommunityURL)
	if err != nil {
		return nil, fmt.Errorf("steam.NewClient: community url: %w", err)
	}
	return &Client{
		http:         opts.HTTPClient,
		creds:        opts.Credentials,
		communityURL: cu,
		apiURL:       strings.TrimRight(opts.APIURL, "/"),
		limiter:      rate.NewLimiter(communityRatePerSec, 3),
		now:          opts.Now,
	}, nil
}

// SteamID devuelve el SteamID64 de la cuenta.
func (c *Client) SteamID() uint64 { return c.creds.SteamID }

func (c *Client) community(path string) string {
	return strings.TrimRight(c.communityURL.String(), "/") + path
}

// doJSON ejecuta la request con rate limiting y decodifica JSON en out.
// Redirecciones a /login y 401/403 significan sesión expirada.
func (c *Client) doJSON(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if strings.Contains(resp.Request.URL.Path, "/login") {
		return retry.Permanent(domain.ErrNotLoggedIn)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return retry.Permanent(fmt.Errorf("%w: status %d on %s", domain.ErrNotLoggedIn, resp.StatusCode, req.URL.Path))
	case resp.StatusCode >= 500:
		return fmt.Errorf("server error %d on %s", resp.StatusCode, req.URL.Path)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("client error %d on %s: %s", resp.StatusCode, req.URL.Path, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("%w: decode %s: %v", domain.ErrBadShape, req.URL.Path, err))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	return c.doJSON(ctx, req, out)
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, referer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	slog.Debug("steam: post", "path", req.URL.Path)
	return c.doJSON(ctx, req, out)
}

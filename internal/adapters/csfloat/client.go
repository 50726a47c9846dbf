package csfloat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/retry"
	"golang.org/x/time/rate"
)

const (
	defaultBase        = "https://csfloat.com"
	defaultTradesLimit = 3000

	// Límites conservadores: el marketplace no documenta los suyos.
	// General: 2 req/s. Accept individual: ~4 req/s (≈0.23s entre llamadas).
	generalRatePerSec = 2
	acceptRatePerSec  = 4
)

// Client es el HTTP client del marketplace con rate limiting.
// Hace un único intento por llamada: el engine decide los reintentos.
type Client struct {
	http          *http.Client
	base          string
	apiKey        string
	tradesLimit   int
	limiter       *rate.Limiter
	acceptLimiter *rate.Limiter
}

// Options configura el Client.
type Options struct {
	BaseURL     string
	APIKey      string
	TradesLimit int
	HTTPClient  *http.Client
}

// NewClient crea un Client. Si BaseURL está vacío usa producción.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBase
	}
	if opts.TradesLimit <= 0 {
		opts.TradesLimit = defaultTradesLimit
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		http:          opts.HTTPClient,
		base:          opts.BaseURL,
		apiKey:        opts.APIKey,
		tradesLimit:   opts.TradesLimit,
		limiter:       rate.NewLimiter(generalRatePerSec, 2),
		acceptLimiter: rate.NewLimiter(acceptRatePerSec, 1),
	}
}

// get hace un GET autenticado y decodifica JSON en out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	return c.do(ctx, c.limiter, req, out)
}

// post hace un POST JSON autenticado.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return retry.Permanent(fmt.Errorf("marshal body: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, limiter, req, out)
}

// do ejecuta la request y clasifica el resultado:
// transporte/429/5xx → reintentable; 401/403/4xx/decode → permanente.
func (c *Client) do(ctx context.Context, limiter *rate.Limiter, req *http.Request, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("rate limited by marketplace", "path", req.URL.Path)
		return domain.ErrRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("server error %d on %s", resp.StatusCode, req.URL.Path)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return retry.Permanent(fmt.Errorf("%w: status %d", domain.ErrUnauthorized, resp.StatusCode))
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return retry.Permanent(&StatusError{Code: resp.StatusCode, Body: string(body)})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("%w: decode %s: %v", domain.ErrBadShape, req.URL.Path, err))
	}
	return nil
}

// StatusError es una respuesta 4xx del marketplace.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.Code, e.Body)
}

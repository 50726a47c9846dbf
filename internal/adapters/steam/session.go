package steam

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/alejandrodnm/autotrade/internal/domain"
)

const (
	cookieSessionID   = "sessionid"
	cookieLoginSecure = "steamLoginSecure"
)

// RestoreSession carga cookies persistidas en el jar. No valida la sesión:
// para eso está LoggedIn.
func (c *Client) RestoreSession(cookies []domain.SessionCookie) {
	hc := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		if ck.Name == "" {
			continue
		}
		hc = append(hc, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: "/", Expires: ck.Expires})
	}
	c.http.Jar.SetCookies(c.communityURL, hc)
}

// Cookies exporta las cookies actuales de la comunidad para persistirlas.
func (c *Client) Cookies() []domain.SessionCookie {
	hc := c.http.Jar.Cookies(c.communityURL)
	out := make([]domain.SessionCookie, 0, len(hc))
	for _, ck := range hc {
		out = append(out, domain.SessionCookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}

type clientJSToken struct {
	LoggedIn bool   `json:"logged_in"`
	SteamID  string `json:"steamid"`
}

// LoggedIn consulta si las cookies actuales siguen siendo válidas.
func (c *Client) LoggedIn(ctx context.Context) (bool, error) {
	var tok clientJSToken
	if err := c.getJSON(ctx, c.community("/chat/clientjstoken"), &tok); err != nil {
		return false, fmt.Errorf("steam.LoggedIn: %w", err)
	}
	return tok.LoggedIn, nil
}

// EnsureSession valida las cookies restauradas y, si han caducado, hace login.
func (c *Client) EnsureSession(ctx context.Context) error {
	ok, err := c.LoggedIn(ctx)
	if err == nil && ok {
		c.ensureSessionID()
		return nil
	}
	if err := c.Login(ctx); err != nil {
		return fmt.Errorf("steam.EnsureSession: %w", err)
	}
	return nil
}

func (c *Client) cookie(name string) string {
	for _, ck := range c.http.Jar.Cookies(c.communityURL) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// ensureSessionID crea la cookie sessionid (token CSRF) si no existe.
func (c *Client) ensureSessionID() string {
	if id := c.cookie(cookieSessionID); id != "" {
		return id
	}
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	id := hex.EncodeToString(buf)
	c.http.Jar.SetCookies(c.communityURL, []*http.Cookie{{Name: cookieSessionID, Value: id, Path: "/"}})
	return id
}

// accessToken extrae el JWT de steamLoginSecure ("<steamid>||<token>").
func (c *Client) accessToken() (string, error) {
	raw := c.cookie(cookieLoginSecure)
	if raw == "" {
		return "", domain.ErrNotLoggedIn
	}
	if dec, err := url.QueryUnescape(raw); err == nil {
		raw = dec
	}
	_, tok, ok := strings.Cut(raw, "||")
	if !ok || tok == "" {
		return "", domain.ErrNotLoggedIn
	}
	return tok, nil
}

package steam

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	guardTypeDeviceCode = 3
	pollAttempts        = 10
)

// Login abre sesión con usuario/contraseña y Steam Guard vía
// IAuthenticationService y deja steamLoginSecure y sessionid en el jar.
func (c *Client) Login(ctx context.Context) error {
	if c.creds.Username == "" || c.creds.Password == "" {
		return fmt.Errorf("steam.Login: missing credentials")
	}

	key, err := c.passwordKey(ctx)
	if err != nil {
		return fmt.Errorf("steam.Login: %w", err)
	}
	encrypted, err := encryptPassword(key, c.creds.Password)
	if err != nil {
		return fmt.Errorf("steam.Login: %w", err)
	}

	var begin beginAuthResponse
	err = c.postForm(ctx, c.apiURL+"/IAuthenticationService/BeginAuthSessionViaCredentials/v1/", url.Values{
		"account_name":         {c.creds.Username},
		"encrypted_password":   {encrypted},
		"encryption_timestamp": {key.Timestamp},
		"remember_login":       {"true"},
		"persistence":          {"1"},
		"website_id":           {"Community"},
	}, "", &begin)
	if err != nil {
		return fmt.Errorf("steam.Login: begin session: %w", err)
	}
	if begin.Response.ClientID == "" {
		return fmt.Errorf("steam.Login: begin session: invalid credentials")
	}

	if begin.needsDeviceCode() {
		code, err := GenerateAuthCode(c.creds.SharedSecret, c.now())
		if err != nil {
			return fmt.Errorf("steam.Login: %w", err)
		}
		err = c.postForm(ctx, c.apiURL+"/IAuthenticationService/UpdateAuthSessionWithSteamGuardCode/v1/", url.Values{
			"client_id": {begin.Response.ClientID},
			"steamid":   {begin.Response.SteamID},
			"code":      {code},
			"code_type": {strconv.Itoa(guardTypeDeviceCode)},
		}, "", nil)
		if err != nil {
			return fmt.Errorf("steam.Login: guard code: %w", err)
		}
	}

	interval := time.Duration(begin.Response.Interval * float64(time.Second))
	if interval <= 0 {
		interval = 5 * time.Second
	}
	tokens, err := c.pollTokens(ctx, begin.Response.ClientID, begin.Response.RequestID, interval)
	if err != nil {
		return fmt.Errorf("steam.Login: %w", err)
	}

	steamID := begin.Response.SteamID
	if id, err := strconv.ParseUint(steamID, 10, 64); err == nil && c.creds.SteamID == 0 {
		c.creds.SteamID = id
	}
	c.http.Jar.SetCookies(c.communityURL, []*http.Cookie{{
		Name:  cookieLoginSecure,
		Value: url.QueryEscape(steamID + "||" + tokens.AccessToken),
		Path:  "/",
	}})
	c.ensureSessionID()
	slog.Info("steam: logged in", "account", tokens.AccountName)
	return nil
}

func (c *Client) passwordKey(ctx context.Context) (rsaKeyResponseBody, error) {
	var resp rsaKeyResponse
	u := c.apiURL + "/IAuthenticationService/GetPasswordRSAPublicKey/v1/?account_name=" + url.QueryEscape(c.creds.Username)
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return rsaKeyResponseBody{}, fmt.Errorf("rsa key: %w", err)
	}
	if resp.Response.Mod == "" || resp.Response.Exp == "" {
		return rsaKeyResponseBody{}, fmt.Errorf("rsa key: empty key")
	}
	return resp.Response, nil
}

// pollTokens espera a que Steam emita los tokens de la sesión.
func (c *Client) pollTokens(ctx context.Context, clientID, requestID string, interval time.Duration) (pollBody, error) {
	for i := 0; i < pollAttempts; i++ {
		var resp pollResponse
		err := c.postForm(ctx, c.apiURL+"/IAuthenticationService/PollAuthSessionStatus/v1/", url.Values{
			"client_id":  {clientID},
			"request_id": {requestID},
		}, "", &resp)
		if err != nil {
			return pollBody{}, fmt.Errorf("poll session: %w", err)
		}
		if resp.Response.AccessToken != "" {
			return resp.Response, nil
		}
		select {
		case <-ctx.Done():
			return pollBody{}, ctx.Err()
		case <-time.After(interval):
		}
	}
	return pollBody{}, fmt.Errorf("poll session: no tokens after %d attempts", pollAttempts)
}

func encryptPassword(key rsaKeyResponseBody, password string) (string, error) {
	n, ok := new(big.Int).SetString(key.Mod, 16)
	if !ok {
		return "", fmt.Errorf("rsa key: bad modulus")
	}
	e, ok := new(big.Int).SetString(key.Exp, 16)
	if !ok || !e.IsInt64() {
		return "", fmt.Errorf("rsa key: bad exponent")
	}
	pub := &rsa.PublicKey{N: n, E: int(e.Int64())}
	out, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(password))
	if err != nil {
		return "", fmt.Errorf("rsa encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/match3rewards/payout-relay/internal/pkg/env"
)

const (
	sandboxAPIBase = "https://api-m.sandbox.paypal.com"
	liveAPIBase    = "https://api-m.paypal.com"

	// Lifetime assumed when the token response omits expires_in.
	defaultTokenLifetime = 3200 * time.Second

	// Tokens are refreshed this long before their declared expiry.
	tokenExpirySkew = 10 * time.Second
)

// ErrTokenFetch marks failures of the client-credentials exchange.
var ErrTokenFetch = errors.New("paypal: token fetch failed")

type Client struct {
	ClientID     string
	ClientSecret string
	APIBase      string
	WebhookID    string

	Currency  string
	MinPayout float64

	TokenTimeout  time.Duration
	VerifyTimeout time.Duration
	PayoutTimeout time.Duration

	HTTPClient *http.Client
	Tokens     TokenStore
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// NewClientFromEnv builds a client from PAYPAL_* environment configuration
// with the Redis-backed token store.
func NewClientFromEnv() *Client {
	apiBase := sandboxAPIBase
	if strings.EqualFold(strings.TrimSpace(env.GetEnv("PAYPAL_ENV", "sandbox")), "live") {
		apiBase = liveAPIBase
	}
	apiBase = strings.TrimRight(env.GetEnv("PAYPAL_API_BASE", apiBase), "/")

	minPayout, err := strconv.ParseFloat(env.GetEnv("PAYOUT_MIN_AMOUNT", "1.00"), 64)
	if err != nil {
		minPayout = 1.00
	}

	return &Client{
		ClientID:      strings.TrimSpace(env.GetEnv("PAYPAL_CLIENT_ID", "")),
		ClientSecret:  strings.TrimSpace(env.GetEnv("PAYPAL_CLIENT_SECRET", "")),
		APIBase:       apiBase,
		WebhookID:     strings.TrimSpace(env.GetEnv("PAYPAL_WEBHOOK_ID", "")),
		Currency:      strings.ToUpper(strings.TrimSpace(env.GetEnv("PAYOUT_CURRENCY", "USD"))),
		MinPayout:     minPayout,
		TokenTimeout:  20 * time.Second,
		VerifyTimeout: 20 * time.Second,
		PayoutTimeout: 30 * time.Second,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Tokens: NewRedisTokenStore(),
	}
}

// GetAccessToken returns a valid bearer token, reusing the cached one while it
// is inside its validity window and performing a client-credentials exchange
// otherwise. Concurrent refreshes are tolerated; the last writer wins.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	if c.Tokens != nil {
		if tok, ok := c.Tokens.Load(); ok && tok.Valid(time.Now(), tokenExpirySkew) {
			return tok.AccessToken, nil
		}
	}

	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return "", fmt.Errorf("%w: PAYPAL_CLIENT_ID/PAYPAL_CLIENT_SECRET are not configured", ErrTokenFetch)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout(c.TokenTimeout, 20*time.Second))
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBase+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenFetch, err)
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en_US")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenFetch, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil || strings.TrimSpace(out.AccessToken) == "" {
		return "", fmt.Errorf("%w: invalid token response: status=%d body=%s", ErrTokenFetch, resp.StatusCode, string(body))
	}

	lifetime := defaultTokenLifetime
	if out.ExpiresIn > 0 {
		lifetime = time.Duration(out.ExpiresIn) * time.Second
	}
	if c.Tokens != nil {
		tok := CachedToken{
			AccessToken: out.AccessToken,
			ExpiresAt:   time.Now().Add(lifetime).Unix(),
		}
		// Best effort: a broken cache must not fail the exchange.
		if err := c.Tokens.Save(tok); err != nil {
			log.Printf("paypal: failed to cache access token: %v", err)
		}
	}

	return out.AccessToken, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) timeout(configured, def time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	return def
}

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/brokerlink-io/brokerlink/transport"
)

// RefreshTokenProvider exchanges a long-lived refresh token for access
// tokens at the broker's OAuth2 token endpoint. Tokens are cached until
// shortly before expiry; concurrent callers share one refresh.
type RefreshTokenProvider struct {
	tokenURL     string
	clientID     string
	refreshToken string
	margin       time.Duration

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// NewRefreshTokenProvider creates a provider for the given token
// endpoint. margin is subtracted from the token lifetime so a token is
// never handed out moments before it expires.
func NewRefreshTokenProvider(tokenURL, clientID, refreshToken string, margin time.Duration) *RefreshTokenProvider {
	if margin <= 0 {
		margin = time.Minute
	}
	return &RefreshTokenProvider{
		tokenURL:     tokenURL,
		clientID:     clientID,
		refreshToken: refreshToken,
		margin:       margin,
	}
}

// Token returns a valid access token, fetching a fresh one when the
// cache is empty or near expiry.
func (p *RefreshTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cachedToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.cachedToken, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, expiresIn, err := p.fetchToken()
	if err != nil {
		return "", err
	}
	p.cachedToken = token
	p.tokenExpiry = time.Now().Add(time.Duration(expiresIn)*time.Second - p.margin)
	return p.cachedToken, nil
}

func (p *RefreshTokenProvider) InjectHeaders(ctx context.Context, conn *transport.Connection) error {
	return injectBearer(ctx, conn, p)
}

func (p *RefreshTokenProvider) fetchToken() (string, int, error) {
	conn, err := transport.NewHTTPSPostConnectionURL(p.tokenURL)
	if err != nil {
		return "", 0, err
	}
	defer conn.Close()

	// SetFields does not encode values; escape them here.
	fields := []transport.KV{
		{Name: "grant_type", Value: "refresh_token"},
		{Name: "refresh_token", Value: url.QueryEscape(p.refreshToken)},
		{Name: "client_id", Value: url.QueryEscape(p.clientID)},
	}
	if err := conn.SetFields(fields); err != nil {
		return "", 0, err
	}

	status, body, _, err := conn.Execute()
	if err != nil {
		return "", 0, fmt.Errorf("auth: token request: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("auth: decode token response: %w", err)
	}
	if status != 200 {
		if tr.Error != "" {
			return "", 0, fmt.Errorf("auth: token endpoint returned %d: %s (%s)", status, tr.Error, tr.ErrorDesc)
		}
		return "", 0, fmt.Errorf("auth: token endpoint returned %d", status)
	}
	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("auth: token response has no access_token")
	}
	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = 1800
	}
	return tr.AccessToken, tr.ExpiresIn, nil
}

// Close drops the cached token.
func (p *RefreshTokenProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cachedToken = ""
	p.tokenExpiry = time.Time{}
	return nil
}

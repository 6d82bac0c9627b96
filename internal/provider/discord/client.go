package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumabyte/misspauling/internal/config"
)

var (
	// ErrExchangeFailed is returned for any failure during the OAuth2 code
	// exchange or the user info fetch. Callers surface it uniformly as an
	// authentication failure; no partially populated identity is returned.
	ErrExchangeFailed = errors.New("discord authentication failed")
)

// Identity is the normalized result of a successful Discord exchange
type Identity struct {
	DiscordID string
	Name      string
	AvatarURL *string
}

// Client performs the Discord OAuth2 code exchange
type Client struct {
	cfg          config.DiscordConfig
	clientSecret string
	http         *http.Client
}

// NewClient creates a Discord OAuth2 client. The client secret comes from
// the environment, never from the config file.
func NewClient(cfg config.DiscordConfig, clientSecret string) *Client {
	return &Client{
		cfg:          cfg,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// BuildAuthorizeURL constructs the OAuth2 authorization redirect with
// scope=identify. state, when non-empty, is carried through the provider
// untouched and comes back on the callback.
func (c *Client) BuildAuthorizeURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.cfg.ApplicationID)
	params.Set("redirect_uri", c.cfg.CallbackURL)
	params.Set("response_type", "code")
	params.Set("scope", "identify")
	if state != "" {
		params.Set("state", state)
	}
	return fmt.Sprintf("%s?%s", c.cfg.OAuthURL, params.Encode())
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
}

// Exchange trades an authorization code for an access token, fetches
// /users/@me and normalizes the result. Any provider-side failure is
// ErrExchangeFailed.
func (c *Client) Exchange(ctx context.Context, code string) (*Identity, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ApplicationID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.CallbackURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s", ErrExchangeFailed, resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil || token.AccessToken == "" {
		return nil, ErrExchangeFailed
	}

	return c.fetchUser(ctx, token.AccessToken)
}

func (c *Client) fetchUser(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: user endpoint returned %d", ErrExchangeFailed, resp.StatusCode)
	}

	var u userResponse
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil || u.ID == "" {
		return nil, ErrExchangeFailed
	}

	return &Identity{
		DiscordID: u.ID,
		Name:      u.Username,
		AvatarURL: avatarURL(u.ID, u.Avatar),
	}, nil
}

// avatarURL builds the CDN URL for an avatar hash. Animated avatars (hash
// prefixed with "a_") use the gif format.
func avatarURL(discordID string, hash *string) *string {
	if hash == nil || *hash == "" {
		return nil
	}
	format := "png"
	if strings.HasPrefix(*hash, "a_") {
		format = "gif"
	}
	u := fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.%s", discordID, *hash, format)
	return &u
}

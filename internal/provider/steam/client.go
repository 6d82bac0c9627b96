package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const playerSummariesURL = "https://api.steampowered.com/ISteamUser/GetPlayerSummaries/v2/"

// Profile is the normalized result of a Steam lookup: the four derived id
// forms plus whatever the Web API added on top.
type Profile struct {
	Identity
	Name *string
}

// Client fetches public profile data from the Steam Web API
type Client struct {
	apiKey string
	http   *http.Client
}

// NewClient creates a Steam Web API client. An empty API key disables the
// remote fetch; lookups then return conversion-only profiles.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type playerSummariesResponse struct {
	Response struct {
		Players []struct {
			PersonaName string `json:"personaname"`
			ProfileURL  string `json:"profileurl"`
		} `json:"players"`
	} `json:"response"`
}

// FetchProfile returns the derived id forms for steamID64, enriched with the
// persona name and canonical profile URL from GetPlayerSummaries when an API
// key is configured. A failed API call degrades to the conversion-only
// profile rather than failing the operation.
func (c *Client) FetchProfile(ctx context.Context, steamID64 string) (*Profile, error) {
	identity, err := DeriveIdentity(steamID64)
	if err != nil {
		return nil, err
	}

	profile := &Profile{Identity: identity}
	if c.apiKey == "" {
		return profile, nil
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("steamids", steamID64)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", playerSummariesURL, params.Encode()), nil)
	if err != nil {
		return profile, nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return profile, nil
	}
	defer resp.Body.Close()

	var payload playerSummariesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return profile, nil
	}
	if len(payload.Response.Players) == 0 {
		return profile, nil
	}

	player := payload.Response.Players[0]
	if player.PersonaName != "" {
		name := player.PersonaName
		profile.Name = &name
	}
	if player.ProfileURL != "" {
		profile.ProfileURL = player.ProfileURL
	}
	return profile, nil
}

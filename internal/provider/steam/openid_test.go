package steam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callbackQuery(claimedID string) url.Values {
	q := url.Values{}
	q.Set("openid.ns", "http://specs.openid.net/auth/2.0")
	q.Set("openid.mode", "id_res")
	q.Set("openid.claimed_id", claimedID)
	q.Set("openid.identity", claimedID)
	q.Set("openid.return_to", "http://localhost:8000/auth/steam/callback")
	q.Set("openid.response_nonce", "2026-08-25T10:00:00Znonce")
	q.Set("openid.assoc_handle", "1234567890")
	q.Set("openid.signed", "signed,op_endpoint,claimed_id,identity,return_to,response_nonce,assoc_handle")
	q.Set("openid.sig", "c2lnbmF0dXJl")
	return q
}

func TestVerifyCallback_Valid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "check_authentication", r.PostForm.Get("openid.mode"))

		w.Write([]byte("ns:http://specs.openid.net/auth/2.0\nis_valid:true\n"))
	}))
	defer srv.Close()

	client := NewOpenIDClient(srv.URL, "http://localhost:8000")
	steamID, err := client.VerifyCallback(context.Background(), callbackQuery("https://steamcommunity.com/openid/id/76561197960287930"))
	require.NoError(t, err)
	assert.Equal(t, "76561197960287930", steamID)
}

func TestVerifyCallback_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ns:http://specs.openid.net/auth/2.0\nis_valid:false\n"))
	}))
	defer srv.Close()

	client := NewOpenIDClient(srv.URL, "http://localhost:8000")
	_, err := client.VerifyCallback(context.Background(), callbackQuery("https://steamcommunity.com/openid/id/76561197960287930"))
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestVerifyCallback_MalformedClaimedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("is_valid:true\n"))
	}))
	defer srv.Close()

	client := NewOpenIDClient(srv.URL, "http://localhost:8000")
	for _, claimed := range []string{
		"",
		"https://evil.example.com/openid/id/76561197960287930",
		"https://steamcommunity.com/openid/id/notanumber",
	} {
		_, err := client.VerifyCallback(context.Background(), callbackQuery(claimed))
		assert.ErrorIs(t, err, ErrVerificationFailed, "claimed_id %q", claimed)
	}
}

func TestBuildLoginURL(t *testing.T) {
	client := NewOpenIDClient("https://steamcommunity.com/openid/login", "http://localhost:8000")
	loginURL := client.BuildLoginURL("http://localhost:8000/auth/steam/callback?link_token=abc")

	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loginURL, "https://steamcommunity.com/openid/login?"))

	q := parsed.Query()
	assert.Equal(t, "checkid_setup", q.Get("openid.mode"))
	assert.Equal(t, "http://localhost:8000", q.Get("openid.realm"))
	assert.Equal(t, "http://localhost:8000/auth/steam/callback?link_token=abc", q.Get("openid.return_to"))
	assert.Equal(t, "http://specs.openid.net/auth/2.0/identifier_select", q.Get("openid.claimed_id"))
}

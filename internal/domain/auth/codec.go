package auth

import (
	"encoding/json"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/lumabyte/misspauling/internal/domain/user"
)

// TokenPayload is the envelope carried inside a signed bearer token. The
// user snapshot is denormalized at signing time and display-only; the
// session token is the trust anchor and must be re-validated on every use.
type TokenPayload struct {
	User         user.Info
	SessionToken string
}

// TokenCodec signs and verifies bearer tokens with a server-held HMAC
// secret. Tokens carry no embedded expiry; lifetime is enforced entirely by
// the wrapped session.
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec creates a codec from the server secret key
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Sign encodes the payload as an HS256-signed token
func (tc *TokenCodec) Sign(payload TokenPayload) (string, error) {
	tok, err := jwt.NewBuilder().
		Claim("user", payload.User).
		Claim("session_token", payload.SessionToken).
		Build()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), tc.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// Verify checks the signature and decodes the payload. Every failure mode
// (malformed, tampered, wrong key) is uniformly ErrInvalidToken.
func (tc *TokenCodec) Verify(token string) (*TokenPayload, error) {
	verified, err := jwt.Parse(
		[]byte(token),
		jwt.WithKey(jwa.HS256(), tc.secret),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var sessionToken string
	if err := verified.Get("session_token", &sessionToken); err != nil || sessionToken == "" {
		return nil, ErrInvalidToken
	}

	var rawUser map[string]any
	if err := verified.Get("user", &rawUser); err != nil {
		return nil, ErrInvalidToken
	}

	// The user claim round-trips through JSON to land back in the snapshot
	// struct.
	var info user.Info
	raw, err := json.Marshal(rawUser)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, ErrInvalidToken
	}

	return &TokenPayload{User: info, SessionToken: sessionToken}, nil
}

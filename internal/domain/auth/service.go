package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/lumabyte/misspauling/internal/config"
	"github.com/lumabyte/misspauling/internal/domain/role"
	"github.com/lumabyte/misspauling/internal/domain/session"
	"github.com/lumabyte/misspauling/internal/domain/user"
	"github.com/lumabyte/misspauling/internal/provider/discord"
	"github.com/lumabyte/misspauling/internal/provider/steam"
)

// LoginResult is a fully resolved authentication event: the user, their
// roles, the freshly minted session and the signed bearer wrapping it.
type LoginResult struct {
	User    *user.User
	Roles   []role.Name
	Session *session.Session
	Bearer  string
	Outcome LinkOutcome
}

// Service orchestrates the provider flows: verify with the adapter, run the
// linking decision table, mint a session, sign the bearer.
type Service struct {
	cfg      *config.Config
	users    user.Repository
	roles    role.Repository
	sessions session.Service
	codec    *TokenCodec
	linker   *Linker

	discord     *discord.Client
	steamOpenID *steam.OpenIDClient
	steamAPI    *steam.Client
}

// NewService creates the auth service
func NewService(
	cfg *config.Config,
	users user.Repository,
	roles role.Repository,
	sessions session.Service,
	codec *TokenCodec,
	linker *Linker,
	discordClient *discord.Client,
	steamOpenID *steam.OpenIDClient,
	steamAPI *steam.Client,
) *Service {
	return &Service{
		cfg:         cfg,
		users:       users,
		roles:       roles,
		sessions:    sessions,
		codec:       codec,
		linker:      linker,
		discord:     discordClient,
		steamOpenID: steamOpenID,
		steamAPI:    steamAPI,
	}
}

func (s *Service) webTTL() time.Duration {
	return time.Duration(s.cfg.Auth.SessionExpiryHours) * time.Hour
}

func (s *Service) apiTTL() time.Duration {
	return time.Duration(s.cfg.Auth.APISessionDays) * 24 * time.Hour
}

// DiscordLoginURL builds the OAuth2 authorization redirect. The state string
// is produced by the handler and carried through Discord untouched.
func (s *Service) DiscordLoginURL(state string) string {
	return s.discord.BuildAuthorizeURL(state)
}

// SteamLoginURL builds the OpenID checkid_setup redirect. The link token and
// force flag ride on return_to so the callback gets them back.
func (s *Service) SteamLoginURL(linkToken string, force bool) string {
	params := url.Values{}
	params.Set("link_token", linkToken)
	if force {
		params.Set("force", "true")
	}
	returnTo := fmt.Sprintf("%s?%s", s.cfg.Steam.CallbackURL, params.Encode())
	return s.steamOpenID.BuildLoginURL(returnTo)
}

// SteamRetryURL is the ready-to-use force retry URL handed back with a Steam
// linking conflict.
func (s *Service) SteamRetryURL(linkToken string) string {
	params := url.Values{}
	params.Set("link_token", linkToken)
	params.Set("force", "true")
	return fmt.Sprintf("%s/auth/steam/login?%s", s.cfg.Server.PublicURL, params.Encode())
}

// linkUserID resolves a link token to the user it identifies, or nil when
// the token is absent or does not resolve. Both the signature and the
// wrapped session must still be valid; the embedded snapshot is ignored.
func (s *Service) linkUserID(linkToken string) *uint {
	if linkToken == "" {
		return nil
	}
	payload, err := s.codec.Verify(linkToken)
	if err != nil {
		return nil
	}
	sess, err := s.sessions.Get(payload.SessionToken)
	if err != nil {
		return nil
	}
	return &sess.UserID
}

// HandleDiscordCallback runs the full Discord flow: exchange the code, run
// the linking decision table, mint a session and bearer. An invalid link
// token degrades silently to a plain login; it never blocks ordinary login.
func (s *Service) HandleDiscordCallback(ctx context.Context, code, linkToken string, external bool, ip, userAgent *string) (*LoginResult, error) {
	identity, err := s.discord.Exchange(ctx, code)
	if err != nil {
		slog.Warn("Discord code exchange failed", "error", err)
		return nil, ErrAuthFailed
	}

	name := identity.Name
	result, err := s.linker.Resolve(
		user.ProviderDiscord,
		identity.DiscordID,
		&name,
		identity.AvatarURL,
		nil,
		s.linkUserID(linkToken),
		false,
	)
	if err != nil {
		return nil, err
	}

	ttl := s.webTTL()
	if external {
		ttl = s.apiTTL()
	}
	return s.issue(result, user.ProviderDiscord, ip, userAgent, ttl)
}

// HandleSteamCallback runs the full Steam flow. Steam cannot create users:
// the link token is mandatory and a present-but-invalid token is an
// authentication failure, never a fresh account.
func (s *Service) HandleSteamCallback(ctx context.Context, query url.Values, linkToken string, force bool, ip, userAgent *string) (*LoginResult, error) {
	linkUserID := s.linkUserID(linkToken)
	if linkUserID == nil {
		return nil, ErrAuthFailed
	}

	steamID64, err := s.steamOpenID.VerifyCallback(ctx, query)
	if err != nil {
		slog.Warn("Steam OpenID verification failed", "error", err)
		return nil, ErrAuthFailed
	}

	// The Web API fetch degrades to id derivation; an error here means the
	// claimed id itself is malformed.
	profile, err := s.steamAPI.FetchProfile(ctx, steamID64)
	if err != nil {
		return nil, ErrAuthFailed
	}

	result, err := s.linker.Resolve(
		user.ProviderSteam,
		steamID64,
		profile.Name,
		nil,
		&user.SteamIdentity{
			SteamID:    profile.SteamID,
			SteamID3:   profile.SteamID3,
			ProfileURL: profile.ProfileURL,
		},
		linkUserID,
		force,
	)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			conflict.RetryURL = s.SteamRetryURL(linkToken)
			return nil, conflict
		}
		return nil, err
	}

	return s.issue(result, user.ProviderSteam, ip, userAgent, s.webTTL())
}

// issue mints the session and bearer for a resolved login or link
func (s *Service) issue(result *LinkResult, provider user.Provider, ip, userAgent *string, ttl time.Duration) (*LoginResult, error) {
	sess, err := s.sessions.Create(result.User.ID, provider.String(), ip, userAgent, ttl)
	if err != nil {
		return nil, err
	}

	bearer, err := s.codec.Sign(TokenPayload{
		User:         result.User.ToInfo(),
		SessionToken: sess.SessionToken,
	})
	if err != nil {
		return nil, err
	}

	names, err := s.roles.NamesForUser(result.User.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("Login resolved",
		"user_id", result.User.ID,
		"provider", provider.String(),
		"outcome", result.Outcome,
	)
	return &LoginResult{
		User:    result.User,
		Roles:   names,
		Session: sess,
		Bearer:  bearer,
		Outcome: result.Outcome,
	}, nil
}

// Logout revokes the session. Returns false when the token never existed.
func (s *Service) Logout(sessionToken string) bool {
	return s.sessions.Invalidate(sessionToken)
}

// Unlink removes a provider identity from the user. Discord is always
// denied. requiresReauth reports that the removed provider was the last
// login method; the caller must clear the client session.
func (s *Service) Unlink(userID uint, provider user.Provider) (*user.User, bool, error) {
	return s.users.UnlinkProvider(userID, provider)
}

// SyncSteam re-derives the Steam columns and refreshes the persona name from
// a fresh Web API fetch.
func (s *Service) SyncSteam(ctx context.Context, userID uint) (*user.User, error) {
	u, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if u.SteamID64 == nil {
		return nil, user.ErrNoSteamLinked
	}

	profile, err := s.steamAPI.FetchProfile(ctx, *u.SteamID64)
	if err != nil {
		return nil, err
	}

	return s.users.UpdateSteamProfile(userID, profile.Name, &user.SteamIdentity{
		SteamID:    profile.SteamID,
		SteamID3:   profile.SteamID3,
		ProfileURL: profile.ProfileURL,
	})
}

// Validate resolves a bearer credential to a live user and their roles. The
// credential may be a signed bearer token or a raw session token; either way
// authority flows through the session lookup, never the embedded snapshot.
func (s *Service) Validate(credential string) (*user.User, []role.Name, error) {
	sessionToken := credential
	if payload, err := s.codec.Verify(credential); err == nil {
		sessionToken = payload.SessionToken
	}

	sess, err := s.sessions.Get(sessionToken)
	if err != nil {
		return nil, nil, session.ErrSessionInvalid
	}

	u, err := s.users.FindByID(sess.UserID)
	if err != nil {
		return nil, nil, session.ErrSessionInvalid
	}

	names, err := s.roles.NamesForUser(u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, names, nil
}

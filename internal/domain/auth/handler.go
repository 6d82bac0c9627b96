package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lumabyte/misspauling/internal/config"
	"github.com/lumabyte/misspauling/internal/domain/role"
	"github.com/lumabyte/misspauling/internal/domain/user"
	"github.com/lumabyte/misspauling/internal/utils"
)

// Handler exposes the browser-facing auth flows and the cross-service
// validation endpoints.
type Handler struct {
	svc   *Service
	roles role.Repository
	cfg   *config.Config
}

// NewHandler creates the auth handler
func NewHandler(svc *Service, roles role.Repository, cfg *config.Config) *Handler {
	return &Handler{svc: svc, roles: roles, cfg: cfg}
}

// DiscordLogin redirects the browser into the Discord OAuth2 flow. An
// optional link_token carries link intent; an optional return_to sends the
// signed bearer to an external service after the callback.
func (h *Handler) DiscordLogin(c *fiber.Ctx) error {
	state := url.Values{}
	if lt := c.Query("link_token"); lt != "" {
		state.Set("link_token", lt)
	}
	if rt := c.Query("return_to"); rt != "" {
		state.Set("return_to", rt)
	}
	return c.Redirect(h.svc.DiscordLoginURL(state.Encode()), fiber.StatusFound)
}

// DiscordCallback finishes the Discord flow: exchange the code, resolve the
// linking decision table, set the session cookie and hand the browser back.
func (h *Handler) DiscordCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return utils.ErrorResponse(c, utils.NewAPIError("AUTH_FAILED", "Authentication failed", fiber.StatusUnauthorized))
	}

	state, _ := url.ParseQuery(c.Query("state"))
	linkToken := state.Get("link_token")
	returnTo := state.Get("return_to")

	res, err := h.svc.HandleDiscordCallback(
		c.Context(),
		code,
		linkToken,
		returnTo != "",
		clientIP(c),
		clientUserAgent(c),
	)
	if err != nil {
		return h.loginError(c, err)
	}

	h.setSessionCookie(c, res)
	IssueCSRFToken(c)

	if returnTo != "" {
		return c.Redirect(appendQuery(returnTo, "token", res.Bearer), fiber.StatusFound)
	}
	return c.Redirect(h.cfg.Server.FrontendURL, fiber.StatusFound)
}

// SteamLogin redirects into the Steam OpenID flow. Steam cannot create
// accounts, so a missing link token bounces to the Discord login instead of
// contacting Steam at all.
func (h *Handler) SteamLogin(c *fiber.Ctx) error {
	linkToken := c.Query("link_token")
	if linkToken == "" {
		return c.Redirect("/auth/discord/login", fiber.StatusFound)
	}
	force := c.Query("force") == "true"
	return c.Redirect(h.svc.SteamLoginURL(linkToken, force), fiber.StatusFound)
}

// SteamCallback finishes the Steam flow. The link token and force flag come
// back on the return_to query, alongside the OpenID assertion parameters.
func (h *Handler) SteamCallback(c *fiber.Ctx) error {
	query := url.Values{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		query.Set(string(k), string(v))
	})

	res, err := h.svc.HandleSteamCallback(
		c.Context(),
		query,
		c.Query("link_token"),
		c.Query("force") == "true",
		clientIP(c),
		clientUserAgent(c),
	)
	if err != nil {
		return h.loginError(c, err)
	}

	h.setSessionCookie(c, res)
	IssueCSRFToken(c)
	return c.Redirect(h.cfg.Server.FrontendURL, fiber.StatusFound)
}

// Logout revokes the session and clears the cookies
func (h *Handler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(SessionCookieName); token != "" {
		h.svc.Logout(token)
	}
	clearCookie(c, SessionCookieName, true)
	clearCookie(c, CSRFCookieName, false)
	return utils.SuccessResponse(c, nil, "Logged out")
}

// Unlink removes a provider identity from the authenticated user. Discord
// is denied unconditionally. When the removed provider was the last login
// method the session is revoked and the client must re-authenticate.
func (h *Handler) Unlink(c *fiber.Ctx) error {
	provider, ok := user.ParseProvider(c.FormValue("provider"))
	if !ok {
		return utils.ErrorResponse(c, utils.NewAPIError("INVALID_PROVIDER", "Unknown provider", fiber.StatusBadRequest))
	}

	u := CurrentUser(c)
	updated, requiresReauth, err := h.svc.Unlink(u.ID, provider)
	if err != nil {
		if errors.Is(err, user.ErrDiscordUnlinkForbidden) {
			return utils.ErrorResponse(c, utils.NewAPIError("DISCORD_UNLINK_FORBIDDEN", "Discord account cannot be unlinked", fiber.StatusForbidden))
		}
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	if requiresReauth {
		if sess := CurrentSession(c); sess != nil {
			h.svc.Logout(sess.SessionToken)
		}
		clearCookie(c, SessionCookieName, true)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"user":            updated.ToInfo(),
		"requires_reauth": requiresReauth,
	}, "Provider unlinked")
}

// SyncSteam refreshes the derived Steam columns and persona name
func (h *Handler) SyncSteam(c *fiber.Ctx) error {
	u := CurrentUser(c)
	updated, err := h.svc.SyncSteam(c.Context(), u.ID)
	if err != nil {
		if errors.Is(err, user.ErrNoSteamLinked) {
			return utils.ErrorResponse(c, utils.NewAPIError("NO_STEAM_LINKED", "No Steam account linked", fiber.StatusBadRequest))
		}
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}
	return utils.SuccessResponse(c, fiber.Map{"user": updated.ToInfo()}, "Steam profile synced")
}

// Me returns the authenticated user with their roles and a CSRF token for
// the frontend to echo back on state-changing requests.
func (h *Handler) Me(c *fiber.Ctx) error {
	u := CurrentUser(c)
	names, err := h.roles.NamesForUser(u.ID)
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	csrf := IssueCSRFToken(c)
	return utils.SuccessResponse(c, fiber.Map{
		"user":       u.ToInfo(),
		"roles":      names,
		"csrf_token": csrf,
	}, "")
}

// ValidateToken resolves a bearer credential for another service. The
// credential may be a signed bearer or a raw session token; either way the
// answer comes from the live session, never the embedded snapshot.
func (h *Handler) ValidateToken(c *fiber.Ctx) error {
	credential := bearerToken(c)
	if credential == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"is_valid": false})
	}

	u, names, err := h.svc.Validate(credential)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"is_valid": false})
	}

	return c.JSON(fiber.Map{
		"is_valid": true,
		"user":     u.ToInfo(),
		"roles":    names,
	})
}

// ValidateSession is the cookie variant of ValidateToken
func (h *Handler) ValidateSession(c *fiber.Ctx) error {
	token := c.Cookies(SessionCookieName)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"is_valid": false})
	}

	u, names, err := h.svc.Validate(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"is_valid": false})
	}

	return c.JSON(fiber.Map{
		"is_valid": true,
		"user":     u.ToInfo(),
		"roles":    names,
	})
}

func (h *Handler) setSessionCookie(c *fiber.Ctx, res *LoginResult) {
	cookie := &fiber.Cookie{
		Name:     SessionCookieName,
		Value:    res.Session.SessionToken,
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	}
	if res.Session.ExpiresAt != nil {
		cookie.Expires = *res.Session.ExpiresAt
	}
	c.Cookie(cookie)
}

func (h *Handler) loginError(c *fiber.Ctx, err error) error {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return utils.ErrorResponse(c, utils.NewAPIError(
			conflict.Code(),
			"This account is already linked to another user",
			fiber.StatusConflict,
		).WithDetails(fiber.Map{
			"conflicting_user_id": conflict.ConflictingUserID,
			"retry_url":           conflict.RetryURL,
		}))
	}

	slog.Warn("Login failed", "error", err)
	return utils.ErrorResponse(c, utils.NewAPIError("AUTH_FAILED", "Authentication failed", fiber.StatusUnauthorized))
}

func clearCookie(c *fiber.Ctx, name string, httpOnly bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HTTPOnly: httpOnly,
		Secure:   true,
		SameSite: "Lax",
		Expires:  time.Now().Add(-time.Hour),
	})
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func clientIP(c *fiber.Ctx) *string {
	ip := c.IP()
	if ip == "" {
		return nil
	}
	return &ip
}

func clientUserAgent(c *fiber.Ctx) *string {
	ua := c.Get("User-Agent")
	if ua == "" {
		return nil
	}
	return &ua
}

func appendQuery(rawURL, key, value string) string {
	sep := "?"
	if u, err := url.Parse(rawURL); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%s", rawURL, sep, key, url.QueryEscape(value))
}

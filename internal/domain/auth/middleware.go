package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lumabyte/misspauling/internal/domain/role"
	"github.com/lumabyte/misspauling/internal/domain/session"
	"github.com/lumabyte/misspauling/internal/domain/user"
	"github.com/lumabyte/misspauling/internal/utils"
)

const (
	// SessionCookieName is the httpOnly cookie carrying the opaque session token
	SessionCookieName = "session_token"

	userKey    = "current_user"
	sessionKey = "current_session"
	rolesKey   = "current_roles"
)

// SessionMiddleware resolves the session cookie to a live user and stores
// both in the request context. Missing, expired and revoked sessions are all
// the same 401.
func SessionMiddleware(sessions session.Service, users user.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookieName)
		if token == "" {
			return utils.ErrorResponse(c, utils.ErrUnauthorized)
		}

		sess, err := sessions.Get(token)
		if err != nil {
			return utils.ErrorResponse(c, utils.ErrUnauthorized)
		}

		u, err := users.FindByID(sess.UserID)
		if err != nil {
			return utils.ErrorResponse(c, utils.ErrUnauthorized)
		}

		c.Locals(sessionKey, sess)
		c.Locals(userKey, u)
		return c.Next()
	}
}

// RequireAdminSurface gates a route on the authenticated user's highest role
// clearing the admin surface rank. Must run after SessionMiddleware. The
// user's role names are stored in the context for downstream hierarchy
// checks.
func RequireAdminSurface(roles role.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return utils.ErrorResponse(c, utils.ErrUnauthorized)
		}

		names, err := roles.NamesForUser(u.ID)
		if err != nil {
			return utils.ErrorResponse(c, utils.ErrInternalServer)
		}
		c.Locals(rolesKey, names)

		highest, ok := role.Highest(names)
		if !ok || !role.CanAccessAdminSurface(highest) {
			return utils.ErrorResponse(c, utils.ErrForbidden)
		}
		return c.Next()
	}
}

// CurrentUser extracts the authenticated user from the request context
func CurrentUser(c *fiber.Ctx) *user.User {
	u, ok := c.Locals(userKey).(*user.User)
	if !ok {
		return nil
	}
	return u
}

// CurrentSession extracts the resolved session from the request context
func CurrentSession(c *fiber.Ctx) *session.Session {
	s, ok := c.Locals(sessionKey).(*session.Session)
	if !ok {
		return nil
	}
	return s
}

// CurrentRoles extracts the role names stored by RequireAdminSurface
func CurrentRoles(c *fiber.Ctx) []role.Name {
	names, ok := c.Locals(rolesKey).([]role.Name)
	if !ok {
		return nil
	}
	return names
}

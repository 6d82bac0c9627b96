package auth

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/lumabyte/misspauling/internal/utils"
)

const (
	// CSRFCookieName is the double-submit cookie. Deliberately not httpOnly:
	// the frontend reads it and echoes it back on state-changing requests.
	CSRFCookieName = "csrf_token"
	// CSRFHeaderName is the header alternative to the form field
	CSRFHeaderName = "X-CSRF-Token"
	// CSRFFormField is the form field alternative to the header
	CSRFFormField = "csrf_token"
)

var errCSRFMismatch = utils.NewAPIError("CSRF_MISMATCH", "CSRF token missing or invalid", fiber.StatusForbidden)

// IssueCSRFToken ensures the browser holds a CSRF cookie, reusing an
// existing value so parallel tabs stay consistent. Returns the token so
// handlers can include it in the response body.
func IssueCSRFToken(c *fiber.Ctx) string {
	token := c.Cookies(CSRFCookieName)
	if token == "" {
		token = uuid.NewString()
	}
	c.Cookie(&fiber.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: false,
		Secure:   true,
		SameSite: "Lax",
		Expires:  time.Now().Add(24 * time.Hour),
	})
	return token
}

// CSRFMiddleware enforces the double-submit check on state-changing
// requests: the form field or header must exactly match the cookie, before
// any business logic runs.
func CSRFMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cookie := c.Cookies(CSRFCookieName)
		submitted := c.FormValue(CSRFFormField)
		if submitted == "" {
			submitted = c.Get(CSRFHeaderName)
		}

		if cookie == "" || submitted == "" {
			return utils.ErrorResponse(c, errCSRFMismatch)
		}
		if subtle.ConstantTimeCompare([]byte(cookie), []byte(submitted)) != 1 {
			return utils.ErrorResponse(c, errCSRFMismatch)
		}
		return c.Next()
	}
}

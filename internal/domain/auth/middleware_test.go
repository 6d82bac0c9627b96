package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumabyte/misspauling/internal/domain/role"
	"github.com/lumabyte/misspauling/internal/domain/session"
	"github.com/lumabyte/misspauling/internal/domain/user"
)

// The admin gate admits by hierarchy rank, not role-name membership: every
// role at or above moderator clears it, everything below is refused.
func TestRequireAdminSurface(t *testing.T) {
	db, users, _ := setupLinker(t)
	roles := role.NewRepository(db)
	sessions := session.NewService(session.NewRepository(db))

	app := fiber.New()
	app.Get("/admin/ping",
		SessionMiddleware(sessions, users),
		RequireAdminSurface(roles),
		func(c *fiber.Ctx) error { return c.SendString("ok") },
	)

	sessionFor := func(discordID string, grant ...role.Name) string {
		u, err := users.CreateOrUpdate(user.ProviderDiscord, discordID, nil, nil, nil)
		require.NoError(t, err)
		for _, n := range grant {
			require.NoError(t, roles.Assign(u.ID, n, nil))
		}
		sess, err := sessions.Create(u.ID, "discord", nil, nil, time.Hour)
		require.NoError(t, err)
		return sess.SessionToken
	}

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"superadmin admitted", sessionFor("9001", role.Superadmin), fiber.StatusOK},
		{"moderator admitted", sessionFor("9002", role.Moderator), fiber.StatusOK},
		{"helper refused", sessionFor("9003", role.Helper), fiber.StatusForbidden},
		{"plain user refused", sessionFor("9004"), fiber.StatusForbidden},
		{"no session", "", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/admin/ping", nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.token})
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

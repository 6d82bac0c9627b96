package server

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lumabyte/misspauling/internal/cache"
	"github.com/lumabyte/misspauling/internal/config"
	"github.com/lumabyte/misspauling/internal/domain/admin"
	"github.com/lumabyte/misspauling/internal/domain/auth"
	"github.com/lumabyte/misspauling/internal/domain/role"
	"github.com/lumabyte/misspauling/internal/domain/session"
	"github.com/lumabyte/misspauling/internal/domain/user"
	"github.com/lumabyte/misspauling/internal/provider/discord"
	"github.com/lumabyte/misspauling/internal/provider/steam"
)

// SetupRoutes wires repositories, services and handlers onto the Fiber app.
// Auth flows live under /auth, cross-service validation under /api/validate
// and user management under /admin behind the role gate.
func SetupRoutes(app *fiber.App, db *gorm.DB, revocationCache *cache.SessionRevocationCache, envConfig *config.Environment, cfg *config.Config) {
	// Initialize repositories
	roleRepo := role.NewRepository(db)
	userRepo := user.NewRepository(db, roleRepo)
	sessionRepo := session.NewRepository(db)

	// Initialize services
	sessionService := session.NewServiceWithCache(sessionRepo, revocationCache)
	codec := auth.NewTokenCodec(envConfig.SecretKey)
	linker := auth.NewLinker(db, userRepo)

	discordClient := discord.NewClient(cfg.Discord, envConfig.DiscordClientSecret)
	steamOpenID := steam.NewOpenIDClient(cfg.Steam.OpenIDURL, cfg.Server.PublicURL)
	steamAPI := steam.NewClient(envConfig.SteamAPIKey)

	authService := auth.NewService(cfg, userRepo, roleRepo, sessionService, codec, linker, discordClient, steamOpenID, steamAPI)
	authHandler := auth.NewHandler(authService, roleRepo, cfg)
	adminHandler := admin.NewHandler(userRepo, roleRepo)

	requireSession := auth.SessionMiddleware(sessionService, userRepo)
	requireCSRF := auth.CSRFMiddleware()
	requireAdmin := auth.RequireAdminSurface(roleRepo)

	// Provider flows
	authGroup := app.Group("/auth")
	authGroup.Get("/discord/login", authHandler.DiscordLogin)
	authGroup.Get("/discord/callback", authHandler.DiscordCallback)
	authGroup.Get("/steam/login", authHandler.SteamLogin)
	authGroup.Get("/steam/callback", authHandler.SteamCallback)
	authGroup.Post("/logout", requireCSRF, authHandler.Logout)

	// Profile management
	authGroup.Get("/me", requireSession, authHandler.Me)
	authGroup.Post("/unlink", requireSession, requireCSRF, authHandler.Unlink)
	authGroup.Post("/sync-steam", requireSession, requireCSRF, authHandler.SyncSteam)

	// Cross-service validation
	api := app.Group("/api")
	api.Post("/validate/token", authHandler.ValidateToken)
	api.Get("/validate/session", authHandler.ValidateSession)

	// User management
	adminGroup := app.Group("/admin", requireSession, requireAdmin)
	adminGroup.Get("/users", adminHandler.ListUsers)
	adminGroup.Post("/users/assign-role", requireCSRF, adminHandler.AssignRole)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})
}

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shotmakerhq/shotmaker/app/controllers"
	"github.com/shotmakerhq/shotmaker/internal/pkg/middleware"
	"github.com/shotmakerhq/shotmaker/internal/pkg/oauth"
	"github.com/shotmakerhq/shotmaker/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// OAuth flow lives outside /api: the provider redirects the browser here.
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

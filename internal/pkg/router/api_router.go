package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/shotmakerhq/shotmaker/app/controllers"
	"github.com/shotmakerhq/shotmaker/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{Max: 120}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Auth
	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/logout", controllers.HandleLogout)

	// Billing: the webhook is authenticated by its signature, not a session.
	v1.Post("/billing/webhook", controllers.HandleStripeWebhook)
	v1.Get("/billing/catalog", controllers.HandleGetCatalog)

	// Everything below requires a session.
	authed := v1.Group("", middleware.RequireAPISessionAuth)

	authed.Get("/me", controllers.HandleGetUserAccount)
	authed.Get("/me/credits", controllers.HandleListCreditTransactions)
	authed.Put("/me/api-key", controllers.HandleUpsertAPIKey)
	authed.Delete("/me/api-key", controllers.HandleDeleteAPIKey)

	authed.Post("/billing/checkout", controllers.HandleCreateCheckout)
	authed.Post("/billing/portal", controllers.HandleBillingPortal)

	authed.Get("/projects", controllers.HandleListProjects)
	authed.Post("/projects", controllers.HandleCreateProject)
	authed.Get("/projects/:uuid", controllers.HandleGetProject)
	authed.Patch("/projects/:uuid", controllers.HandleUpdateProject)
	authed.Delete("/projects/:uuid", controllers.HandleDeleteProject)
	authed.Get("/projects/:uuid/media", controllers.HandleListEntityMedia)

	authed.Get("/media/:uuid", controllers.HandleServeMedia)
	authed.Delete("/media/:uuid", controllers.HandleDeleteMedia)

	authed.Get("/generation/models", controllers.HandleListImageModels)
	authed.Post("/generation/style", controllers.HandleGenerateStylePreview)
	authed.Post("/generation/asset", controllers.HandleGenerateAsset)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

package controllers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shotmakerhq/shotmaker/app/repository"
	"github.com/shotmakerhq/shotmaker/internal/pkg/credits"
	"github.com/shotmakerhq/shotmaker/internal/pkg/generation"
	"github.com/shotmakerhq/shotmaker/internal/pkg/media"
)

const requestTimeout = 120 * time.Second

// requestContext bounds handler work that calls external services.
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func creditService() *credits.Service {
	return credits.NewService(repository.GetGlobalFactory().GetLedgerRepository())
}

func generationOrchestrator() *generation.Orchestrator {
	return generation.NewOrchestrator(
		repository.GetGlobalFactory().GetGenerationRepository(),
		creditService(),
	)
}

// mediaService is set once at startup; the object storage connection is not
// rebuilt per request.
var mediaSvc *media.Service

// SetMediaService wires the media service used by controllers.
func SetMediaService(svc *media.Service) {
	mediaSvc = svc
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// pagination reads offset/limit query params with sane bounds.
func pagination(c *fiber.Ctx, defaultLimit, maxLimit int) (int, int) {
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit
}

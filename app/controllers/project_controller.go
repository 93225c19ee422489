package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/app/repository"
	"github.com/shotmakerhq/shotmaker/internal/pkg/usercontext"
)

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Data        string `json:"data"`
}

func projectResponse(p *models.Project) fiber.Map {
	data := p.Data
	if data == "" {
		data = "{}"
	}
	return fiber.Map{
		"uuid":         p.UUID,
		"name":         p.Name,
		"description":  p.Description,
		"data":         data,
		"storage_used": p.StorageUsed,
		"created_at":   p.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// loadOwnedProject fetches a project by UUID and checks ownership. Foreign
// projects read as 404, not 403, so project UUIDs leak nothing.
func loadOwnedProject(c *fiber.Ctx, projectUUID string) (*models.Project, error) {
	userCtx := usercontext.GetUserContext(c)

	project, err := repository.GetGlobalFactory().GetProjectRepository().GetByUUID(projectUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Project not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load project")
	}
	if project.UserID != userCtx.UserID {
		return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Project not found")
	}
	return project, nil
}

// HandleCreateProject creates a project for the authenticated user.
func HandleCreateProject(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req projectRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	data := strings.TrimSpace(req.Data)
	if data == "" {
		data = "{}"
	}
	project := &models.Project{
		UUID:        uuid.New().String(),
		UserID:      userCtx.UserID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Data:        data,
	}
	if err := project.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := repository.GetGlobalFactory().GetProjectRepository().Create(project); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create project")
	}
	return c.Status(fiber.StatusCreated).JSON(projectResponse(project))
}

// HandleListProjects lists the authenticated user's projects.
func HandleListProjects(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := pagination(c, 50, 200)

	repo := repository.GetGlobalFactory().GetProjectRepository()
	projects, err := repo.GetByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load projects")
	}
	total, err := repo.CountByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load projects")
	}

	items := make([]fiber.Map, 0, len(projects))
	for i := range projects {
		items = append(items, projectResponse(&projects[i]))
	}
	return c.JSON(fiber.Map{
		"items":  items,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// HandleGetProject returns one project.
func HandleGetProject(c *fiber.Ctx) error {
	project, err := loadOwnedProject(c, c.Params("uuid"))
	if err != nil {
		return err
	}
	return c.JSON(projectResponse(project))
}

// HandleUpdateProject updates a project's name, description or data
// document. Fields absent from the body are left unchanged.
func HandleUpdateProject(c *fiber.Ctx) error {
	project, err := loadOwnedProject(c, c.Params("uuid"))
	if err != nil {
		return err
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Data        *string `json:"data"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Data != nil {
		project.Data = *req.Data
	}
	if err := project.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := repository.GetGlobalFactory().GetProjectRepository().Update(project); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update project")
	}
	return c.JSON(projectResponse(project))
}

// HandleDeleteProject deletes a project, its media rows and every stored
// object under the project prefix.
func HandleDeleteProject(c *fiber.Ctx) error {
	project, err := loadOwnedProject(c, c.Params("uuid"))
	if err != nil {
		return err
	}

	if mediaSvc != nil {
		ctx, cancel := requestContext()
		defer cancel()
		if _, err := mediaSvc.DeleteProjectMedia(ctx, project.UserID, project.ID, project.UUID); err != nil {
			log.Errorf("failed to delete media for project %s: %v", project.UUID, err)
		}
	}

	if err := repository.GetGlobalFactory().GetProjectRepository().Delete(project.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete project")
	}
	return c.JSON(fiber.Map{"ok": true})
}

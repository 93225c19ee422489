package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/app/repository"
	"github.com/shotmakerhq/shotmaker/internal/pkg/usercontext"
)

func mediaResponse(file *models.MediaFile, url string) fiber.Map {
	return fiber.Map{
		"uuid":        file.UUID,
		"entity_type": file.EntityType,
		"entity_id":   file.EntityID,
		"draft_index": file.DraftIndex,
		"image_index": file.ImageIndex,
		"file_type":   file.FileType,
		"size_bytes":  file.SizeBytes,
		"url":         url,
	}
}

// loadOwnedMediaFile fetches a media file by UUID and checks ownership.
func loadOwnedMediaFile(c *fiber.Ctx) (*models.MediaFile, error) {
	userCtx := usercontext.GetUserContext(c)

	file, err := repository.GetGlobalFactory().GetMediaRepository().GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Media file not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load media file")
	}
	if file.UserID != userCtx.UserID {
		return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Media file not found")
	}
	return file, nil
}

// HandleListEntityMedia lists media files for one entity within a project,
// ordered by draft and image index.
func HandleListEntityMedia(c *fiber.Ctx) error {
	project, err := loadOwnedProject(c, c.Params("uuid"))
	if err != nil {
		return err
	}

	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")
	if entityType == "" || entityID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "entity_type and entity_id are required")
	}

	files, err := repository.GetGlobalFactory().GetMediaRepository().ListByEntity(project.ID, entityType, entityID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load media files")
	}

	items := make([]fiber.Map, 0, len(files))
	for i := range files {
		items = append(items, mediaResponse(&files[i], mediaSvc.PublicURL(&files[i])))
	}
	return c.JSON(fiber.Map{"items": items})
}

// HandleServeMedia streams a stored image. ?thumb=1 serves the thumbnail
// variant when one exists.
func HandleServeMedia(c *fiber.Ctx) error {
	file, err := loadOwnedMediaFile(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext()
	defer cancel()
	data, contentType, err := mediaSvc.Fetch(ctx, file, c.QueryBool("thumb"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Stored object is missing")
	}
	if contentType == "" {
		contentType = file.FileType
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Send(data)
}

// HandleDeleteMedia removes one media file and releases its storage.
func HandleDeleteMedia(c *fiber.Ctx) error {
	file, err := loadOwnedMediaFile(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := mediaSvc.DeleteFile(ctx, file); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete media file")
	}
	return c.JSON(fiber.Map{"ok": true})
}

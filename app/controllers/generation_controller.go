package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/internal/pkg/credits"
	"github.com/shotmakerhq/shotmaker/internal/pkg/entitlements"
	"github.com/shotmakerhq/shotmaker/internal/pkg/generation"
	"github.com/shotmakerhq/shotmaker/internal/pkg/media"
	"github.com/shotmakerhq/shotmaker/internal/pkg/usercontext"
)

// HandleListImageModels returns the supported image models.
func HandleListImageModels(c *fiber.Ctx) error {
	modelList := generation.AvailableImageModels()
	items := make([]fiber.Map, 0, len(modelList))
	for _, m := range modelList {
		items = append(items, fiber.Map{"id": m.ID, "label": m.Label})
	}
	return c.JSON(fiber.Map{"items": items})
}

type stylePreviewRequest struct {
	ProjectUUID string                 `json:"project_uuid"`
	StyleID     string                 `json:"style_id"`
	Style       generation.VisualStyle `json:"style"`
	SubjectType string                 `json:"subject_type"`
	Model       string                 `json:"model"`
	DraftIndex  int                    `json:"draft_index"`
}

// HandleGenerateStylePreview generates one style preview image. Costs the
// style generation rate; a failed provider call costs nothing.
func HandleGenerateStylePreview(c *fiber.Ctx) error {
	var req stylePreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if req.StyleID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "style_id is required")
	}

	project, err := loadOwnedProject(c, req.ProjectUUID)
	if err != nil {
		return err
	}

	styleValues := generation.CompileStyleValues(req.Style)
	prompt := generation.BuildStylePreviewPrompt(styleValues, req.SubjectType)

	return runGeneration(c, generationRun{
		Project:    project,
		Kind:       models.GenerationKindStyle,
		Cost:       entitlements.CostStyleGeneration,
		Model:      req.Model,
		Prompt:     prompt,
		EntityType: models.MediaEntityStyle,
		EntityID:   req.StyleID,
		DraftIndex: req.DraftIndex,
	})
}

type assetGenerationRequest struct {
	ProjectUUID   string                 `json:"project_uuid"`
	AssetID       string                 `json:"asset_id"`
	Type          string                 `json:"type"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Attributes    map[string]string      `json:"attributes"`
	AttributeKeys []string               `json:"attribute_keys"`
	Style         generation.VisualStyle `json:"style"`
	Model         string                 `json:"model"`
	DraftIndex    int                    `json:"draft_index"`

	// Refinement fields. Refine is false for a fresh generation.
	Refine         bool                          `json:"refine"`
	OriginalPrompt string                        `json:"original_prompt"`
	Instructions   string                        `json:"instructions"`
	Conversation   []generation.ConversationTurn `json:"conversation"`
}

var validAssetTypes = map[string]string{
	"character": models.MediaEntityCharacter,
	"object":    models.MediaEntityObject,
	"set":       models.MediaEntitySet,
}

// HandleGenerateAsset generates or refines one asset image (character,
// object or set). Cost depends on the asset type and whether this is a
// refinement.
func HandleGenerateAsset(c *fiber.Ctx) error {
	var req assetGenerationRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	entityType, ok := validAssetTypes[req.Type]
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "type must be character, object or set")
	}
	if req.AssetID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "asset_id is required")
	}
	if strings.TrimSpace(req.Name) == "" && !req.Refine {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "name is required")
	}

	project, err := loadOwnedProject(c, req.ProjectUUID)
	if err != nil {
		return err
	}

	styleValues := generation.CompileStyleValues(req.Style)

	var prompt string
	kind := models.GenerationKindAsset
	if req.Refine {
		if strings.TrimSpace(req.Instructions) == "" {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "instructions are required for refinement")
		}
		kind = models.GenerationKindAssetRefinement
		prompt = generation.BuildRefinementPrompt(generation.RefinementPromptParams{
			Type:           req.Type,
			OriginalPrompt: req.OriginalPrompt,
			Instructions:   req.Instructions,
			StyleValues:    styleValues,
		})
		prompt += generation.FormatConversationHistory(req.Conversation)
	} else {
		prompt = generation.BuildAssetPrompt(generation.AssetPromptParams{
			Type:        req.Type,
			Name:        req.Name,
			Description: req.Description,
			StyleValues: styleValues,
		})
		prompt += generation.FormatAttributes(req.AttributeKeys, req.Attributes)
	}

	return runGeneration(c, generationRun{
		Project:    project,
		Kind:       kind,
		Cost:       entitlements.AssetGenerationCost(req.Type, req.Refine),
		Model:      req.Model,
		Prompt:     prompt,
		EntityType: entityType,
		EntityID:   req.AssetID,
		DraftIndex: req.DraftIndex,
	})
}

type generationRun struct {
	Project    *models.Project
	Kind       string
	Cost       int
	Model      string
	Prompt     string
	EntityType string
	EntityID   string
	DraftIndex int
}

// runGeneration executes the shared begin/generate/store/complete sequence.
func runGeneration(c *fiber.Ctx, run generationRun) error {
	userCtx := usercontext.GetUserContext(c)

	model := run.Model
	if model == "" {
		model = generation.DefaultImageModel
	}
	if !generation.IsValidImageModel(model) {
		return jsonError(c, fiber.StatusBadRequest, "unknown_model", "Unsupported image model")
	}

	apiKey := generation.ResolveAPIKey(resolveUserAPIKey(userCtx.UserID, "google"))
	if apiKey == "" {
		return jsonError(c, fiber.StatusBadRequest, "no_api_key", "No generation API key configured")
	}

	ctx, cancel := requestContext()
	defer cancel()

	orch := generationOrchestrator()
	attemptID, err := orch.BeginAttempt(ctx, userCtx.UserID, run.Kind, model, &run.Project.ID, run.Cost)
	if err != nil {
		if errors.Is(err, credits.ErrInsufficientCredits) {
			return jsonError(c, fiber.StatusPaymentRequired, "insufficient_credits", "Not enough credits for this generation")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to start generation")
	}

	images, genErr := generation.NewGeminiClientFromEnv().GenerateImages(ctx, apiKey, generation.ImageRequest{
		Prompt: run.Prompt,
		Model:  model,
	})
	if genErr != nil {
		if err := orch.CompleteAttempt(ctx, attemptID, genErr); err != nil && !errors.Is(err, generation.ErrGenerationFailed) {
			log.Errorf("failed to settle attempt %s: %v", attemptID, err)
		}
		log.Warnf("generation attempt %s failed: %v", attemptID, genErr)
		return jsonError(c, fiber.StatusBadGateway, "generation_failed", "The image provider rejected this generation")
	}

	stored := make([]fiber.Map, 0, len(images))
	for i, img := range images {
		file, err := mediaSvc.StoreGeneratedImage(ctx, media.StoreParams{
			UserID:      userCtx.UserID,
			ProjectID:   run.Project.ID,
			ProjectUUID: run.Project.UUID,
			EntityType:  run.EntityType,
			EntityID:    run.EntityID,
			DraftIndex:  run.DraftIndex,
			ImageIndex:  i,
			Data:        img,
		})
		if err != nil {
			if completeErr := orch.CompleteAttempt(ctx, attemptID, err); completeErr != nil && !errors.Is(completeErr, generation.ErrGenerationFailed) {
				log.Errorf("failed to settle attempt %s: %v", attemptID, completeErr)
			}
			if errors.Is(err, media.ErrStorageLimitExceeded) {
				return jsonError(c, fiber.StatusRequestEntityTooLarge, "storage_limit_exceeded", "Storage limit reached; delete media or upgrade your plan")
			}
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store generated image")
		}
		stored = append(stored, fiber.Map{
			"uuid":       file.UUID,
			"object_key": file.ObjectKey,
			"url":        mediaSvc.PublicURL(file),
			"draft":      file.DraftIndex,
			"index":      file.ImageIndex,
		})
	}

	if err := orch.CompleteAttempt(ctx, attemptID, nil); err != nil {
		if errors.Is(err, credits.ErrInsufficientCredits) {
			return jsonError(c, fiber.StatusPaymentRequired, "insufficient_credits", "Not enough credits for this generation")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to settle generation")
	}

	_, balance, err := creditService().CheckSufficient(ctx, userCtx.UserID, 0)
	if err != nil {
		balance = 0
	}
	return c.JSON(fiber.Map{
		"attempt_id": attemptID,
		"prompt":     run.Prompt,
		"images":     stored,
		"credits": fiber.Map{
			"spent":   run.Cost,
			"balance": balance,
		},
	})
}

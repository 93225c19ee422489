package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/app/repository"
	"github.com/shotmakerhq/shotmaker/internal/pkg/entitlements"
	"github.com/shotmakerhq/shotmaker/internal/pkg/env"
	"github.com/shotmakerhq/shotmaker/internal/pkg/generation"
	"github.com/shotmakerhq/shotmaker/internal/pkg/security"
	"github.com/shotmakerhq/shotmaker/internal/pkg/usercontext"
)

// HandleGetUserAccount returns account information for the authenticated user.
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	plan := entitlements.NormalizePlan(account.Plan)
	catalog := entitlements.FromEnv()
	monthlyCredits := 0
	planName := string(plan)
	if def := catalog.GetPlan(plan); def != nil {
		monthlyCredits = def.MonthlyCredits
		planName = def.Name
	}

	remaining := account.StorageLimit - account.StorageUsed
	if remaining < 0 {
		remaining = 0
	}

	return c.JSON(fiber.Map{
		"id":         account.ID,
		"name":       account.Name,
		"email":      account.Email,
		"avatar_url": account.AvatarURL,
		"status":     account.Status,
		"created_at": account.CreatedAt.UTC().Format(time.RFC3339),
		"plan": fiber.Map{
			"id":              string(plan),
			"name":            planName,
			"monthly_credits": monthlyCredits,
		},
		"credits": fiber.Map{
			"balance": account.CreditBalance,
		},
		"storage": fiber.Map{
			"used_bytes":      account.StorageUsed,
			"limit_bytes":     account.StorageLimit,
			"remaining_bytes": remaining,
		},
	})
}

// HandleListCreditTransactions returns the newest ledger entries for the
// authenticated user.
func HandleListCreditTransactions(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := pagination(c, 25, 100)

	entries, err := creditService().ListRecent(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load credit history")
	}

	items := make([]fiber.Map, 0, len(entries))
	for _, entry := range entries {
		items = append(items, fiber.Map{
			"amount":        entry.Amount,
			"reason":        entry.Reason,
			"reference_id":  entry.ReferenceID,
			"balance_after": entry.BalanceAfter,
			"created_at":    entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{
		"items":  items,
		"offset": offset,
		"limit":  limit,
	})
}

type apiKeyRequest struct {
	Provider string `json:"provider"`
	Key      string `json:"key"`
}

// HandleUpsertAPIKey validates and stores the user's own generation provider
// key, encrypted at rest.
func HandleUpsertAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req apiKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "API key is required")
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = "google"
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := generation.NewGeminiClientFromEnv().TestAPIKey(ctx, key); err != nil {
		log.Warnf("api key validation failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_api_key", "The provided API key was rejected by the provider")
	}

	encrypted, err := security.EncryptAPIKey(key, env.GetEnv("APP_SECRET", ""))
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store API key")
	}

	record := &models.UserAPIKey{
		UserID:       userCtx.UserID,
		Provider:     provider,
		EncryptedKey: encrypted,
		KeyHint:      security.KeyHint(key),
		IsValid:      true,
	}
	if err := repository.GetGlobalFactory().GetAPIKeyRepository().Upsert(record); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store API key")
	}

	return c.JSON(fiber.Map{
		"provider": provider,
		"key_hint": record.KeyHint,
		"is_valid": true,
	})
}

// HandleDeleteAPIKey invalidates the user's stored provider key; generation
// falls back to the server-side key afterwards.
func HandleDeleteAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	provider := strings.TrimSpace(c.Query("provider", "google"))
	if err := repository.GetGlobalFactory().GetAPIKeyRepository().Invalidate(userCtx.UserID, provider); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to remove API key")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// resolveUserAPIKey loads and decrypts the user's stored provider key.
// Returns empty when no valid key is stored.
func resolveUserAPIKey(userID uint, provider string) string {
	record, err := repository.GetGlobalFactory().GetAPIKeyRepository().GetByUserAndProvider(userID, provider)
	if err != nil || !record.IsValid {
		return ""
	}
	key, err := security.DecryptAPIKey(record.EncryptedKey, env.GetEnv("APP_SECRET", ""))
	if err != nil {
		log.Warnf("failed to decrypt stored api key for user %d: %v", userID, err)
		return ""
	}
	return key
}

package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/app/repository"
	"github.com/shotmakerhq/shotmaker/internal/pkg/session"
	"github.com/shotmakerhq/shotmaker/internal/pkg/usercontext"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account and grants the signup credits through
// the ledger, so the very first balance already has an audit entry.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if len(req.Password) < 8 {
		return jsonError(c, fiber.StatusBadRequest, "weak_password", "Password must be at least 8 characters")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if existing, err := repo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email))); err == nil && existing != nil {
		return jsonError(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := repo.Create(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create account")
	}

	ctx, cancel := requestContext()
	defer cancel()
	if _, err := creditService().Grant(ctx, user.ID, models.DefaultCreditGrant,
		models.CreditReasonSignupGrant, fmt.Sprintf("signup-%d", user.ID)); err != nil {
		log.Errorf("failed to grant signup credits for user %d: %v", user.ID, err)
	}

	if err := establishSession(c, user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create session")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"plan":  user.Plan,
	})
}

// HandleLogin verifies credentials and starts a session.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "This account is not active")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repo.Update(user); err != nil {
		log.Errorf("failed to update last login for user %d: %v", user.ID, err)
	}

	if err := establishSession(c, user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create session")
	}
	return c.JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"plan":  user.Plan,
	})
}

// HandleLogout destroys the session.
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			log.Errorf("failed to destroy session: %v", err)
		}
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleOAuthBegin starts the provider OAuth flow.
func HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider OAuth flow, creating the
// account on first login. OAuth accounts get the same signup grant as
// password accounts.
func HandleOAuthCallback(c *fiber.Ctx) error {
	gothUser, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "oauth_failed", "Authentication failed")
	}

	email := strings.ToLower(strings.TrimSpace(gothUser.Email))
	if email == "" {
		return jsonError(c, fiber.StatusBadRequest, "oauth_failed", "Provider returned no email address")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load account")
		}

		name := strings.TrimSpace(gothUser.Name)
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		user = &models.User{
			Name:         name,
			Email:        email,
			Role:         models.ROLE_USER,
			Status:       models.STATUS_ACTIVE,
			Plan:         "free",
			StorageLimit: models.DefaultStorageLimit,
			AvatarURL:    gothUser.AvatarURL,
		}
		if err := repo.Create(user); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create account")
		}

		ctx, cancel := requestContext()
		defer cancel()
		if _, err := creditService().Grant(ctx, user.ID, models.DefaultCreditGrant,
			models.CreditReasonSignupGrant, fmt.Sprintf("signup-%d", user.ID)); err != nil {
			log.Errorf("failed to grant signup credits for user %d: %v", user.ID, err)
		}
	}

	if err := establishSession(c, user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create session")
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func establishSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyUserPlan, user.Plan)
	return sess.Save()
}

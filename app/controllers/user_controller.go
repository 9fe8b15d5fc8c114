package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SplitFund/app/models"
	"github.com/ManuelReschke/SplitFund/app/repository"
)

// EnsureUserRequest identifies a user by their provider identity. Existing
// users get their profile fields refreshed, unknown ones are created.
type EnsureUserRequest struct {
	ProviderUserID   string `json:"provider_user_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	StripeCustomerID string `json:"stripe_customer_id"`
}

// HandleEnsureUser upserts a user by provider identity. Recipient flags are
// never changed here; eligibility is managed through the recipient-status
// endpoint only.
func HandleEnsureUser(c *fiber.Ctx) error {
	var req EnsureUserRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}
	if strings.TrimSpace(req.ProviderUserID) == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "provider_user_id is required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()

	user, err := repo.GetByProviderUserID(strings.TrimSpace(req.ProviderUserID))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		fiberlog.Errorf("failed to look up user %s: %v", req.ProviderUserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to look up user")
	}

	if user == nil {
		user = &models.User{
			ProviderUserID:   strings.TrimSpace(req.ProviderUserID),
			Name:             strings.TrimSpace(req.Name),
			Email:            strings.TrimSpace(req.Email),
			StripeCustomerID: strings.TrimSpace(req.StripeCustomerID),
			Role:             models.ROLE_USER,
			IsActive:         true,
		}
		if err := user.Validate(); err != nil {
			return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
		}
		if err := repo.Create(user); err != nil {
			fiberlog.Errorf("failed to create user %s: %v", user.ProviderUserID, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create user")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user, "created": true})
	}

	if v := strings.TrimSpace(req.Name); v != "" {
		user.Name = v
	}
	if v := strings.TrimSpace(req.Email); v != "" {
		user.Email = v
	}
	if v := strings.TrimSpace(req.StripeCustomerID); v != "" {
		user.StripeCustomerID = v
	}
	if err := user.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}
	if err := repo.Update(user); err != nil {
		fiberlog.Errorf("failed to update user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update user")
	}

	return c.JSON(fiber.Map{"user": user, "created": false})
}

// HandleIssueAPIKey generates a fresh API key for a user and stores only
// its hash. The raw key appears in this response once and is not
// recoverable afterwards.
func HandleIssueAPIKey(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid user id")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		fiberlog.Errorf("failed to load user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	rawKey, hash, err := models.GenerateAPIKey()
	if err != nil {
		fiberlog.Errorf("failed to generate api key for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to generate API key")
	}

	user.APIKeyHash = hash
	user.APIKeyLastUsedAt = nil
	if err := repo.Update(user); err != nil {
		fiberlog.Errorf("failed to store api key hash for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store API key")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user_id": user.ID, "api_key": rawKey})
}

// HandleListUsers returns a page of users for the admin surface.
func HandleListUsers(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)

	repo := repository.GetGlobalFactory().GetUserRepository()
	users, err := repo.List(offset, limit)
	if err != nil {
		fiberlog.Errorf("failed to list users: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list users")
	}
	total, err := repo.Count()
	if err != nil {
		fiberlog.Errorf("failed to count users: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count users")
	}

	return c.JSON(fiber.Map{"users": users, "total": total, "offset": offset, "limit": limit})
}

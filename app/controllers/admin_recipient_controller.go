package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SplitFund/app/repository"
	"github.com/ManuelReschke/SplitFund/internal/pkg/authz"
	"github.com/ManuelReschke/SplitFund/internal/pkg/usercontext"
)

// UpdateRecipientStatusRequest toggles a user's distribution eligibility.
type UpdateRecipientStatusRequest struct {
	IsRecipient bool `json:"is_recipient"`
	IsActive    bool `json:"is_active"`
}

var recipientAuthorizer authz.Authorizer = authz.NewAdminAuthorizer()

// HandleUpdateRecipientStatus changes whether a user participates in future
// payment distributions. Splits already written are never touched; the new
// flags only affect payments settled afterwards.
func HandleUpdateRecipientStatus(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid user id")
	}

	var req UpdateRecipientStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()

	actor, err := userRepo.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Unknown caller")
	}
	if err := recipientAuthorizer.CanManageRecipients(actor); err != nil {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Not allowed to manage recipients")
	}

	target, err := userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		fiberlog.Errorf("failed to load user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	if err := userRepo.UpdateRecipientFlags(target.ID, req.IsRecipient, req.IsActive); err != nil {
		fiberlog.Errorf("failed to update recipient flags for user %d: %v", target.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update recipient status")
	}

	fiberlog.Infof("user %d recipient flags changed by %d: recipient=%t active=%t", target.ID, actor.ID, req.IsRecipient, req.IsActive)

	return c.JSON(fiber.Map{
		"user_id":      target.ID,
		"is_recipient": req.IsRecipient,
		"is_active":    req.IsActive,
	})
}

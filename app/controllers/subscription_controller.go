package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SplitFund/app/models"
	"github.com/ManuelReschke/SplitFund/app/repository"
)

// UpsertSubscriptionRequest creates or refreshes a subscription record as
// reported by the payment provider.
type UpsertSubscriptionRequest struct {
	UserID                 uint       `json:"user_id"`
	ProviderSubscriptionID string     `json:"provider_subscription_id"`
	Status                 string     `json:"status"`
	PriceRef               string     `json:"price_ref"`
	Amount                 int64      `json:"amount"`
	Currency               string     `json:"currency"`
	CurrentPeriodStart     *time.Time `json:"current_period_start"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd      bool       `json:"cancel_at_period_end"`
}

// HandleUpsertSubscription creates the subscription if unknown, otherwise
// refreshes its provider-owned fields. Keyed by provider_subscription_id.
func HandleUpsertSubscription(c *fiber.Ctx) error {
	var req UpsertSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}
	if strings.TrimSpace(req.ProviderSubscriptionID) == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "provider_subscription_id is required")
	}
	if !models.IsValidSubscriptionStatus(req.Status) {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_status", "Unknown subscription status")
	}
	if req.Amount < 0 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_amount", "Amount must not be negative")
	}

	repos := repository.GetGlobalFactory()

	if _, err := repos.GetUserRepository().GetByID(req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		fiberlog.Errorf("failed to load user %d: %v", req.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	sub := &models.Subscription{
		UserID:                 req.UserID,
		ProviderSubscriptionID: strings.TrimSpace(req.ProviderSubscriptionID),
		Status:                 req.Status,
		PriceRef:               strings.TrimSpace(req.PriceRef),
		Amount:                 req.Amount,
		Currency:               strings.ToLower(strings.TrimSpace(req.Currency)),
		CurrentPeriodStart:     req.CurrentPeriodStart,
		CurrentPeriodEnd:       req.CurrentPeriodEnd,
		CancelAtPeriodEnd:      req.CancelAtPeriodEnd,
	}
	if err := repos.GetSubscriptionRepository().Upsert(sub); err != nil {
		fiberlog.Errorf("failed to upsert subscription %s: %v", sub.ProviderSubscriptionID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store subscription")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subscription": sub})
}

// HandleUpdateSubscription refreshes an existing subscription addressed by
// its provider id in the path.
func HandleUpdateSubscription(c *fiber.Ctx) error {
	providerID := strings.TrimSpace(c.Params("providerID"))
	if providerID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Missing provider subscription id")
	}

	subRepo := repository.GetGlobalFactory().GetSubscriptionRepository()
	existing, err := subRepo.GetByProviderSubscriptionID(providerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
		}
		fiberlog.Errorf("failed to load subscription %s: %v", providerID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}

	var req UpsertSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}
	if req.Status != "" && !models.IsValidSubscriptionStatus(req.Status) {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_status", "Unknown subscription status")
	}

	if req.Status != "" {
		existing.Status = req.Status
	}
	if req.PriceRef != "" {
		existing.PriceRef = strings.TrimSpace(req.PriceRef)
	}
	if req.Amount > 0 {
		existing.Amount = req.Amount
	}
	if req.Currency != "" {
		existing.Currency = strings.ToLower(strings.TrimSpace(req.Currency))
	}
	if req.CurrentPeriodStart != nil {
		existing.CurrentPeriodStart = req.CurrentPeriodStart
	}
	if req.CurrentPeriodEnd != nil {
		existing.CurrentPeriodEnd = req.CurrentPeriodEnd
	}
	existing.CancelAtPeriodEnd = req.CancelAtPeriodEnd

	if err := subRepo.Upsert(existing); err != nil {
		fiberlog.Errorf("failed to update subscription %s: %v", providerID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update subscription")
	}

	return c.JSON(fiber.Map{"subscription": existing})
}

// HandleListSubscriptionsByStatus lists subscriptions in one lifecycle
// state, defaulting to active.
func HandleListSubscriptionsByStatus(c *fiber.Ctx) error {
	status := c.Query("status", models.SubscriptionStatusActive)
	if !models.IsValidSubscriptionStatus(status) {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_status", "Unknown subscription status")
	}

	subs, err := repository.GetGlobalFactory().GetSubscriptionRepository().ListByStatus(status)
	if err != nil {
		fiberlog.Errorf("failed to list %s subscriptions: %v", status, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list subscriptions")
	}

	return c.JSON(fiber.Map{"subscriptions": subs, "status": status, "count": len(subs)})
}

// HandleListUserSubscriptions lists all subscriptions of one user.
func HandleListUserSubscriptions(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid user id")
	}

	subs, err := repository.GetGlobalFactory().GetSubscriptionRepository().ListByUser(userID)
	if err != nil {
		fiberlog.Errorf("failed to list subscriptions for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list subscriptions")
	}

	return c.JSON(fiber.Map{"subscriptions": subs, "count": len(subs)})
}

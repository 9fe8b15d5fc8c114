package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/SplitFund/internal/pkg/settlement"
)

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// settlementError maps the settlement error taxonomy onto HTTP responses.
// Unknown errors fall through to a 500.
func settlementError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, settlement.ErrPaymentNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Payment not found")
	case errors.Is(err, settlement.ErrSubscriptionNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
	case errors.Is(err, settlement.ErrRecipientNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Recipient not found")
	case errors.Is(err, settlement.ErrInvalidStatus):
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_status", "Unknown payment status")
	case errors.Is(err, settlement.ErrInvalidAmount):
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_amount", "Amount must be a positive integer")
	case errors.Is(err, settlement.ErrNotSettleable):
		return jsonError(c, fiber.StatusUnprocessableEntity, "not_settleable", "Payment is not in a settleable state")
	case errors.Is(err, settlement.ErrNoEligibleRecipients):
		return jsonError(c, fiber.StatusUnprocessableEntity, "no_eligible_recipients", "No eligible recipients to distribute to")
	case errors.Is(err, settlement.ErrUnsupportedEvent):
		return jsonError(c, fiber.StatusUnprocessableEntity, "unsupported_event", "Event type is not part of the payment lifecycle")
	default:
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Unexpected error")
	}
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func parsePagination(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	limit = c.QueryInt("limit", 50)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return offset, limit
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

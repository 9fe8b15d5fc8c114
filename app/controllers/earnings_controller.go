package controllers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SplitFund/internal/pkg/cache"
	"github.com/ManuelReschke/SplitFund/internal/pkg/database"
	"github.com/ManuelReschke/SplitFund/internal/pkg/settlement"
)

const earningsCacheTTL = 5 * time.Minute

func earningsCacheKey(recipientID uint) string {
	return fmt.Sprintf("earnings:recipient:%d", recipientID)
}

// HandleListRecipients returns every user currently eligible to receive
// payment splits.
func HandleListRecipients(c *fiber.Ctx) error {
	svc := settlement.NewServiceFromDB(database.GetDB())
	recipients, err := svc.ListEligibleRecipients(c.Context())
	if err != nil {
		fiberlog.Errorf("failed to list eligible recipients: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list recipients")
	}

	return c.JSON(fiber.Map{"recipients": recipients, "count": len(recipients)})
}

// HandleGetRecipientEarnings returns the earnings rollup for one recipient.
// Rollups are cached in redis and invalidated whenever a settlement
// credits the recipient.
func HandleGetRecipientEarnings(c *fiber.Ctx) error {
	recipientID, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid recipient id")
	}

	key := earningsCacheKey(recipientID)
	if cached, err := cache.Get(key); err == nil && cached != "" {
		var earnings settlement.Earnings
		if err := json.Unmarshal([]byte(cached), &earnings); err == nil {
			return c.JSON(fiber.Map{"recipient_id": recipientID, "earnings": earnings, "cached": true})
		}
	} else if err != nil && !cache.IsMiss(err) {
		fiberlog.Warnf("earnings cache read failed for recipient %d: %v", recipientID, err)
	}

	svc := settlement.NewServiceFromDB(database.GetDB())
	earnings, err := svc.GetRecipientEarnings(c.Context(), recipientID)
	if err != nil {
		return settlementError(c, err)
	}

	if encoded, err := json.Marshal(earnings); err == nil {
		if err := cache.Set(key, string(encoded), earningsCacheTTL); err != nil {
			fiberlog.Warnf("earnings cache write failed for recipient %d: %v", recipientID, err)
		}
	}

	return c.JSON(fiber.Map{"recipient_id": recipientID, "earnings": earnings, "cached": false})
}

package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SplitFund/internal/pkg/metrics/counter"
)

// HandleSettlementStats returns the redis settlement tallies for dashboards.
// The values are advisory; the payment ledger stays authoritative.
func HandleSettlementStats(c *fiber.Ctx) error {
	settled, distributed, err := counter.Snapshot()
	if err != nil {
		fiberlog.Errorf("failed to read settlement counters: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to read settlement counters")
	}

	return c.JSON(fiber.Map{
		"settled_payments":  settled,
		"distributed_pence": distributed,
	})
}

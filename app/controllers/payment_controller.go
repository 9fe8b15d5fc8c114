package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SplitFund/internal/pkg/database"
	"github.com/ManuelReschke/SplitFund/internal/pkg/settlement"
)

// RecordPaymentRequest is the admin-facing payload for recording a payment
// outside of the webhook flow.
type RecordPaymentRequest struct {
	SubscriptionID    uint   `json:"subscription_id"`
	ProviderPaymentID string `json:"provider_payment_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	PaidAt            string `json:"paid_at"`
}

// ReportPaymentStatusRequest carries a status transition for an existing
// payment, keyed by its provider payment id.
type ReportPaymentStatusRequest struct {
	ProviderPaymentID string `json:"provider_payment_id"`
	Status            string `json:"status"`
}

// HandleRecordPayment records a payment and, when it already succeeded,
// settles it synchronously.
func HandleRecordPayment(c *fiber.Ctx) error {
	var req RecordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}

	paidAt := time.Now()
	if raw := strings.TrimSpace(req.PaidAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "paid_at must be RFC 3339")
		}
		paidAt = parsed
	}

	svc := settlement.NewServiceFromDB(database.GetDB())
	payment, splits, err := svc.RecordPayment(c.Context(), settlement.NormalizedPayment{
		SubscriptionID:    req.SubscriptionID,
		ProviderPaymentID: req.ProviderPaymentID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Status:            req.Status,
		PaidAt:            paidAt,
	})
	if err != nil {
		// A payment can be recorded even when nobody is eligible yet; it
		// is reported as created but unsettled.
		if payment != nil {
			fiberlog.Warnf("payment %s recorded without settlement: %v", payment.ProviderPaymentID, err)
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment": payment, "settled": false})
		}
		return settlementError(c, err)
	}

	if payment.SplitProcessed && len(splits) > 0 {
		recordSettlementSideEffects(payment, splits)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment": payment,
		"settled": payment.SplitProcessed,
		"splits":  splits,
	})
}

// HandleReportPaymentStatus applies a provider status transition. A
// transition to succeeded triggers settlement; repeating it returns the
// splits already written.
func HandleReportPaymentStatus(c *fiber.Ctx) error {
	var req ReportPaymentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}
	if strings.TrimSpace(req.ProviderPaymentID) == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "provider_payment_id is required")
	}

	svc := settlement.NewServiceFromDB(database.GetDB())
	payment, splits, err := svc.ReportPaymentStatus(c.Context(), req.ProviderPaymentID, req.Status)
	if err != nil {
		return settlementError(c, err)
	}

	if payment.SplitProcessed && len(splits) > 0 {
		recordSettlementSideEffects(payment, splits)
	}

	return c.JSON(fiber.Map{
		"payment": payment,
		"settled": payment.SplitProcessed,
		"splits":  splits,
	})
}

// HandleListPayments lists payments together with their subscription and
// payer, newest first.
func HandleListPayments(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)

	svc := settlement.NewServiceFromDB(database.GetDB())
	payments, err := svc.ListPayments(c.Context(), offset, limit)
	if err != nil {
		fiberlog.Errorf("failed to list payments: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list payments")
	}

	return c.JSON(fiber.Map{
		"payments": payments,
		"offset":   offset,
		"limit":    limit,
		"count":    len(payments),
	})
}

// HandleGetPaymentSplits returns the split ledger of one payment together
// with the credited recipients. A settled payment always has splits; an
// unsettled one returns an empty list.
func HandleGetPaymentSplits(c *fiber.Ctx) error {
	paymentID, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid payment id")
	}

	svc := settlement.NewServiceFromDB(database.GetDB())
	splits, err := svc.GetSplitsForPayment(c.Context(), paymentID)
	if err != nil {
		return settlementError(c, err)
	}

	return c.JSON(fiber.Map{"payment_id": paymentID, "splits": splits, "count": len(splits)})
}

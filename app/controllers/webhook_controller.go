package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SplitFund/app/models"
	"github.com/ManuelReschke/SplitFund/internal/pkg/cache"
	"github.com/ManuelReschke/SplitFund/internal/pkg/database"
	"github.com/ManuelReschke/SplitFund/internal/pkg/env"
	"github.com/ManuelReschke/SplitFund/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/SplitFund/internal/pkg/settlement"
)

// HandleStripeWebhook ingests Stripe payment events. Events are persisted
// before processing so that redeliveries are acknowledged without running
// the settlement twice.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	if len(payload) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Empty webhook payload")
	}

	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	sigHeader := c.Get("Stripe-Signature")
	signatureValid := secret != "" && settlement.VerifyStripeWebhookSignature(payload, sigHeader, secret, time.Now(), settlement.DefaultSignatureTolerance)
	if secret != "" && !signatureValid {
		fiberlog.Warnf("stripe webhook rejected: invalid signature from %s", c.IP())
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	parsed, err := settlement.ParseStripePaymentEvent(payload)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Malformed Stripe event payload")
	}

	svc := settlement.NewServiceFromDB(database.GetDB())
	created, event, err := svc.RecordWebhookEvent(c.Context(), settlement.WebhookEventInput{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: parsed.EventID,
		EventType:       parsed.EventType,
		PayloadJSON:     string(payload),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		fiberlog.Errorf("failed to record stripe event %s: %v", parsed.EventID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to record event")
	}
	if !created {
		// Redelivery of an event we already own. Acknowledge so Stripe
		// stops retrying.
		return c.JSON(fiber.Map{"received": true, "duplicate": true, "event_id": event.ProviderEventID})
	}

	payment, splits, procErr := svc.ProcessWebhookEvent(c.Context(), event)
	if markErr := svc.MarkWebhookProcessed(c.Context(), event.ID, procErr); markErr != nil {
		fiberlog.Errorf("failed to mark stripe event %d processed: %v", event.ID, markErr)
	}
	if procErr != nil {
		if errors.Is(procErr, settlement.ErrUnsupportedEvent) {
			// Not a payment lifecycle event; stored for audit, nothing to do.
			return c.JSON(fiber.Map{"received": true, "ignored": true, "event_id": event.ProviderEventID})
		}
		if errors.Is(procErr, settlement.ErrNoEligibleRecipients) {
			// The payment is recorded but cannot be distributed yet; it
			// stays on the unsettled queue for a later retry.
			fiberlog.Warnf("stripe event %s recorded without settlement: no eligible recipients", event.ProviderEventID)
			return c.JSON(fiber.Map{"received": true, "settled": false, "event_id": event.ProviderEventID})
		}
		fiberlog.Errorf("failed to process stripe event %s: %v", event.ProviderEventID, procErr)
		return settlementError(c, procErr)
	}

	if payment != nil && len(splits) > 0 {
		recordSettlementSideEffects(payment, splits)
	}

	return c.JSON(fiber.Map{
		"received":     true,
		"event_id":     event.ProviderEventID,
		"settled":      payment != nil && payment.SplitProcessed,
		"splits_count": len(splits),
	})
}

// recordSettlementSideEffects bumps the redis counters and drops the cached
// earnings rollups of every credited recipient. Both are best-effort.
func recordSettlementSideEffects(payment *models.Payment, splits []models.PaymentSplit) {
	if err := counter.AddSettlement(payment.Amount); err != nil {
		fiberlog.Warnf("failed to update settlement counters for payment %d: %v", payment.ID, err)
	}
	for _, split := range splits {
		if err := cache.Delete(earningsCacheKey(split.RecipientID)); err != nil {
			fiberlog.Warnf("failed to invalidate earnings cache for recipient %d: %v", split.RecipientID, err)
		}
	}
}

package settlement

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/SplitFund/app/models"
)

// DefaultSignatureTolerance bounds how old a webhook timestamp may be
// before the signature is rejected as a replay.
const DefaultSignatureTolerance = 5 * time.Minute

// HashEventPayload returns a stable identifier for payloads that arrive
// without a provider event id.
func HashEventPayload(payloadJSON string) string {
	sum := sha256.Sum256([]byte(payloadJSON))
	return hex.EncodeToString(sum[:])
}

// VerifyStripeWebhookSignature checks a Stripe-Signature header against the
// payload. Stripe signs "<timestamp>.<payload>" with HMAC-SHA256 and sends
// the result in one or more v1 entries.
func VerifyStripeWebhookSignature(payload []byte, signatureHeader, webhookSecret string, now time.Time, tolerance time.Duration) bool {
	header := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if header == "" || secret == "" {
		return false
	}

	var timestamp int64
	var candidates [][]byte
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return false
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(strings.ToLower(kv[1]))
			if err != nil {
				continue
			}
			candidates = append(candidates, sig)
		}
	}
	if timestamp == 0 || len(candidates) == 0 {
		return false
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		if hmac.Equal(expected, candidate) {
			return true
		}
	}
	return false
}

// StripePaymentEvent is the subset of a Stripe payment event the settlement
// engine consumes.
type StripePaymentEvent struct {
	EventID                string
	EventType              string
	PaymentIntentID        string
	Amount                 int64
	Currency               string
	Status                 string
	ProviderSubscriptionID string
	PaidAt                 time.Time
}

// ParseStripePaymentEvent extracts payment fields from a raw Stripe event
// payload.
func ParseStripePaymentEvent(raw []byte) (*StripePaymentEvent, error) {
	var payload struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID           string `json:"id"`
				Amount       int64  `json:"amount"`
				Currency     string `json:"currency"`
				Status       string `json:"status"`
				Created      int64  `json:"created"`
				Subscription string `json:"subscription"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload.Data.Object.ID == "" {
		return nil, errors.New("stripe event carries no payment object")
	}

	ev := &StripePaymentEvent{
		EventID:                payload.ID,
		EventType:              payload.Type,
		PaymentIntentID:        payload.Data.Object.ID,
		Amount:                 payload.Data.Object.Amount,
		Currency:               payload.Data.Object.Currency,
		Status:                 payload.Data.Object.Status,
		ProviderSubscriptionID: payload.Data.Object.Subscription,
	}
	if payload.Data.Object.Created > 0 {
		ev.PaidAt = time.Unix(payload.Data.Object.Created, 0)
	}
	return ev, nil
}

// StripeEventToPaymentStatus maps a Stripe event type and intent status to
// the closed internal payment status set. Event types outside the payment
// lifecycle are rejected with ErrUnsupportedEvent.
func StripeEventToPaymentStatus(eventType, intentStatus string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "payment_intent.succeeded":
		return models.PaymentStatusSucceeded, nil
	case "payment_intent.payment_failed":
		return models.PaymentStatusFailed, nil
	case "payment_intent.canceled":
		return models.PaymentStatusCanceled, nil
	case "payment_intent.processing", "payment_intent.created":
		return models.PaymentStatusPending, nil
	case "charge.refunded":
		return models.PaymentStatusRefunded, nil
	}

	// Fall back to the intent status for providers that replay bare objects.
	status := strings.ToLower(strings.TrimSpace(intentStatus))
	if models.IsValidPaymentStatus(status) {
		return status, nil
	}
	return "", ErrUnsupportedEvent
}

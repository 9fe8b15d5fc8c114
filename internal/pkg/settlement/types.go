package settlement

import (
	"time"

	"github.com/ManuelReschke/SplitFund/app/models"
)

// NormalizedPayment is the provider-agnostic shape used when recording an
// incoming payment, regardless of whether it arrived via webhook or an
// admin call.
type NormalizedPayment struct {
	SubscriptionID    uint
	ProviderPaymentID string
	Amount            int64
	Currency          string
	Status            string
	PaidAt            time.Time
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// EnrichedSplit is a payment split together with the recipient it credits.
type EnrichedSplit struct {
	models.PaymentSplit
	Recipient *models.User `json:"recipient,omitempty"`
}

// EnrichedPayment is a payment together with its subscription and payer.
type EnrichedPayment struct {
	models.Payment
	Subscription *models.Subscription `json:"subscription,omitempty"`
	Payer        *models.User         `json:"payer,omitempty"`
}

// Earnings is the per-recipient rollup over all splits credited to them.
type Earnings struct {
	TotalEarnings int64                 `json:"total_earnings"`
	PaymentsCount int                   `json:"payments_count"`
	Splits        []models.PaymentSplit `json:"splits"`
}

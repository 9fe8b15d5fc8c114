package models

import "time"

// Payment statuses form a closed set validated at the boundary. Provider
// payloads carrying anything else are rejected at ingest, not stored.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusCanceled  = "canceled"
)

// Payment is one received subscription payment. Amount is in minor currency
// units (pence). SplitProcessed is the single source of truth for "has this
// payment been distributed": it flips false -> true exactly once and is
// never reset.
type Payment struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	PublicID          string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"public_id"`
	SubscriptionID    uint      `gorm:"not null;index" json:"subscription_id"`
	ProviderPaymentID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_payment_id"`
	Amount            int64     `gorm:"not null" json:"amount"`
	Currency          string    `gorm:"type:varchar(3);not null;default:'gbp'" json:"currency"`
	Status            string    `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	SplitProcessed    bool      `gorm:"default:false;index" json:"split_processed"`
	PaidAt            time.Time `gorm:"type:timestamp;not null" json:"paid_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsValidPaymentStatus reports whether the value is part of the closed
// payment status set.
func IsValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusCanceled:
		return true
	default:
		return false
	}
}

// IsSucceeded reports whether the payment is in the settleable status.
func (p *Payment) IsSucceeded() bool {
	return p.Status == PaymentStatusSucceeded
}

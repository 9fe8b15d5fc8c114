package models

import "time"

const (
	SplitStatusProcessed = "processed"
)

// PaymentSplit is one recipient's share of one payment. Splits are created
// only by the settlement service, as a batch committed together with the
// payment's SplitProcessed flag, and are immutable afterwards. For a settled
// payment the split amounts always sum exactly to the payment amount.
type PaymentSplit struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PaymentID   uint       `gorm:"not null;index" json:"payment_id"`
	RecipientID uint       `gorm:"not null;index" json:"recipient_id"`
	Amount      int64      `gorm:"not null" json:"amount"`
	Status      string     `gorm:"type:varchar(32);not null;default:'processed'" json:"status"`
	ProcessedAt *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

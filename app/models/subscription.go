package models

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusUnpaid   = "unpaid"
	SubscriptionStatusTrialing = "trialing"
)

// Subscription mirrors a provider subscription for one payer. It is billing
// context for payments only; lifecycle changes arrive from the provider and
// the settlement engine never mutates it beyond syncing provider state.
type Subscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 uint       `gorm:"not null;index" json:"user_id"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_subscription_id"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	PriceRef               string     `gorm:"type:varchar(191);not null" json:"price_ref"`
	Amount                 int64      `gorm:"not null" json:"amount"`
	Currency               string     `gorm:"type:varchar(3);not null;default:'gbp'" json:"currency"`
	CurrentPeriodStart     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsValidSubscriptionStatus reports whether the value is part of the closed
// subscription status set accepted at the boundary.
func IsValidSubscriptionStatus(status string) bool {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusPastDue, SubscriptionStatusCanceled,
		SubscriptionStatusUnpaid, SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}

package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// User is a platform member. Recipients are users flagged with IsRecipient
// and IsActive; only users carrying both flags take part in payment splits.
// Identity itself (login, sessions) lives with the external identity
// provider - we only mirror the provider subject here.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ProviderUserID   string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_user_id" validate:"required"`
	Name             string     `gorm:"type:varchar(150)" json:"name" validate:"required,min=1,max=150"`
	Email            string     `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	StripeCustomerID string     `gorm:"type:varchar(191);default:'';index" json:"stripe_customer_id,omitempty"`
	Role             string     `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	IsRecipient      bool       `gorm:"default:false;index:idx_users_recipient_active,priority:1" json:"is_recipient"`
	IsActive         bool       `gorm:"default:false;index:idx_users_recipient_active,priority:2" json:"is_active"`
	APIKeyHash       string     `gorm:"type:varchar(64);default:'';index" json:"-"`
	APIKeyLastUsedAt *time.Time `gorm:"type:timestamp;default:null" json:"-"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsEligibleRecipient reports whether the user qualifies for payment splits.
func (u *User) IsEligibleRecipient() bool {
	return u.IsRecipient && u.IsActive
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey creates a new random API key and returns the raw key plus
// its storable hash. The raw key is shown to the caller once and never
// persisted.
func GenerateAPIKey() (string, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	rawKey := "sf_" + strings.ToLower(apiKeyEncoding.EncodeToString(b))
	return rawKey, HashAPIKey(rawKey), nil
}

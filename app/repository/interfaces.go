package repository

import (
	"github.com/ManuelReschke/SplitFund/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByProviderUserID(providerUserID string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	UpdateRecipientFlags(id uint, isRecipient, isActive bool) error
	TouchAPIKeyUsage(id uint) error
	List(offset, limit int) ([]models.User, error)
	ListEligibleRecipients() ([]models.User, error)
	Count() (int64, error)
}

// SubscriptionRepository defines the interface for subscription-related
// database operations
type SubscriptionRepository interface {
	Upsert(sub *models.Subscription) error
	GetByID(id uint) (*models.Subscription, error)
	GetByProviderSubscriptionID(providerSubscriptionID string) (*models.Subscription, error)
	ListByUser(userID uint) ([]models.Subscription, error)
	ListByStatus(status string) ([]models.Subscription, error)
}

// PaymentRepository defines the interface for payment and split database
// operations, including the conditional settlement commit.
type PaymentRepository interface {
	CreateIfNotExists(payment *models.Payment) (bool, *models.Payment, error)
	GetByID(id uint) (*models.Payment, error)
	GetByProviderPaymentID(providerPaymentID string) (*models.Payment, error)
	UpdateStatus(id uint, status string) error
	// SettlePayment atomically inserts the split batch and flips the
	// payment's split_processed flag, guarded by split_processed = false.
	// Returns false without writing anything when the guard fails, i.e. a
	// concurrent settlement already won.
	SettlePayment(paymentID uint, splits []models.PaymentSplit) (bool, error)
	ListSplitsByPayment(paymentID uint) ([]models.PaymentSplit, error)
	ListSplitsByRecipient(recipientID uint) ([]models.PaymentSplit, error)
	ListUnsettledSucceeded(limit int) ([]models.Payment, error)
	List(offset, limit int) ([]models.Payment, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Subscription SubscriptionRepository
	Payment      PaymentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Payment:      NewPaymentRepository(db),
	}
}

package repository

import (
	"github.com/ManuelReschke/SplitFund/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert creates or updates a subscription keyed by its provider id
func (r *subscriptionRepository) Upsert(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"status",
			"price_ref",
			"amount",
			"currency",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("provider_subscription_id = ?", sub.ProviderSubscriptionID).
		First(sub).Error
}

// GetByID retrieves a subscription by its ID
func (r *subscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByProviderSubscriptionID retrieves a subscription by its provider id
func (r *subscriptionRepository) GetByProviderSubscriptionID(providerSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("provider_subscription_id = ?", providerSubscriptionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListByUser retrieves all subscriptions for a payer
func (r *subscriptionRepository) ListByUser(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&subs).Error
	return subs, err
}

// ListByStatus retrieves all subscriptions in the given status
func (r *subscriptionRepository) ListByStatus(status string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("status = ?", status).Order("id ASC").Find(&subs).Error
	return subs, err
}

package repository

import (
	"time"

	"github.com/ManuelReschke/SplitFund/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// CreateIfNotExists inserts a payment keyed by its provider payment id.
// Redelivered provider events resolve to the already stored row: the bool
// reports whether this call created it.
func (r *paymentRepository) CreateIfNotExists(payment *models.Payment) (bool, *models.Payment, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider_payment_id"},
		},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.Payment
	if err := r.db.Where("provider_payment_id = ?", payment.ProviderPaymentID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// GetByID retrieves a payment by its internal ID
func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByProviderPaymentID retrieves a payment by its provider payment id
func (r *paymentRepository) GetByProviderPaymentID(providerPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("provider_payment_id = ?", providerPaymentID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateStatus updates a payment's provider status. The settlement flag is
// deliberately not touchable through this path.
func (r *paymentRepository) UpdateStatus(id uint, status string) error {
	res := r.db.Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SettlePayment commits one settlement in a single transaction: the
// split_processed flag flip is guarded by its previous value, so of any
// number of concurrent attempts exactly one passes and writes the splits.
// A reader never observes a settled payment without its full split set.
func (r *paymentRepository) SettlePayment(paymentID uint, splits []models.PaymentSplit) (bool, error) {
	won := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND split_processed = ?", paymentID, false).
			Updates(map[string]interface{}{"split_processed": true})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the compare-and-swap; leave the prior settlement intact.
			return nil
		}
		if err := tx.Create(&splits).Error; err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// ListSplitsByPayment retrieves the splits of one payment in creation order
func (r *paymentRepository) ListSplitsByPayment(paymentID uint) ([]models.PaymentSplit, error) {
	var splits []models.PaymentSplit
	err := r.db.Where("payment_id = ?", paymentID).Order("id ASC").Find(&splits).Error
	return splits, err
}

// ListSplitsByRecipient retrieves all splits credited to a recipient
func (r *paymentRepository) ListSplitsByRecipient(recipientID uint) ([]models.PaymentSplit, error) {
	var splits []models.PaymentSplit
	err := r.db.Where("recipient_id = ?", recipientID).Order("id ASC").Find(&splits).Error
	return splits, err
}

// ListUnsettledSucceeded returns succeeded payments that were never
// distributed, oldest first. Fuel for an external retry sweep.
func (r *paymentRepository) ListUnsettledSucceeded(limit int) ([]models.Payment, error) {
	var payments []models.Payment
	q := r.db.
		Where("status = ? AND split_processed = ?", models.PaymentStatusSucceeded, false).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&payments).Error
	return payments, err
}

// List retrieves payments with pagination, newest first
func (r *paymentRepository) List(offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Offset(offset).Limit(limit).Order("id DESC").Find(&payments).Error
	return payments, err
}

// CreateWebhookEventIfNotExists persists a webhook event unless the same
// provider event was already stored
func (r *paymentRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// MarkWebhookProcessed marks an event as processed and stores an optional error
func (r *paymentRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

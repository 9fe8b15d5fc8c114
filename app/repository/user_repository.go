package repository

import (
	"strings"
	"time"

	"github.com/ManuelReschke/SplitFund/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByProviderUserID retrieves a user by their external identity subject
func (r *userRepository) GetByProviderUserID(providerUserID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("provider_user_id = ?", providerUserID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByAPIKeyHash resolves an API key hash to its user
func (r *userRepository) GetByAPIKeyHash(hash string) (*models.User, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	err := r.db.Where("api_key_hash = ?", trimmed).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateRecipientFlags sets the recipient-class and activation flags for a
// user without touching the rest of the row.
func (r *userRepository) UpdateRecipientFlags(id uint, isRecipient, isActive bool) error {
	res := r.db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_recipient": isRecipient,
			"is_active":    isActive,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchAPIKeyUsage refreshes the last-used timestamp for a user's API key.
func (r *userRepository) TouchAPIKeyUsage(id uint) error {
	now := time.Now()
	return r.db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"api_key_last_used_at": &now}).Error
}

// List retrieves users with pagination
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Offset(offset).Limit(limit).Order("id ASC").Find(&users).Error
	return users, err
}

// ListEligibleRecipients returns all users currently eligible for payment
// splits, ordered by ascending id. The order is load-bearing: the split
// calculator hands the remainder to the earliest recipients, so it must be
// stable for a given snapshot.
func (r *userRepository) ListEligibleRecipients() ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("is_recipient = ? AND is_active = ?", true, true).
		Order("id ASC").
		Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

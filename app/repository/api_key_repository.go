package repository

import (
	"github.com/shotmakerhq/shotmaker/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// apiKeyRepository implements the APIKeyRepository interface
type apiKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new API key repository instance
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Upsert(key *models.UserAPIKey) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "provider"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"encrypted_key",
			"key_hint",
			"is_valid",
			"updated_at",
		}),
	}).Create(key).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("user_id = ? AND provider = ?", key.UserID, key.Provider).
		First(key).Error
}

func (r *apiKeyRepository) GetByUserAndProvider(userID uint, provider string) (*models.UserAPIKey, error) {
	var key models.UserAPIKey
	err := r.db.Where("user_id = ? AND provider = ? AND is_valid = ?", userID, provider, true).
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepository) Invalidate(userID uint, provider string) error {
	return r.db.Model(&models.UserAPIKey{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Update("is_valid", false).Error
}

package repository

import (
	"time"

	"github.com/shotmakerhq/shotmaker/app/models"
	"gorm.io/gorm"
)

// generationAttemptRepository implements GenerationAttemptRepository
type generationAttemptRepository struct {
	db *gorm.DB
}

// NewGenerationAttemptRepository creates a new generation attempt repository instance
func NewGenerationAttemptRepository(db *gorm.DB) GenerationAttemptRepository {
	return &generationAttemptRepository{db: db}
}

func (r *generationAttemptRepository) Create(attempt *models.GenerationAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *generationAttemptRepository) GetByUUID(uuid string) (*models.GenerationAttempt, error) {
	var attempt models.GenerationAttempt
	err := r.db.Where("uuid = ?", uuid).First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// MarkCompleted transitions an attempt to its terminal state. Attempts are
// never re-opened, so only rows still in running state are updated.
func (r *generationAttemptRepository) MarkCompleted(id uint, status, errorDetail string, durationMs int64) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"error_detail": errorDetail,
		"duration_ms":  durationMs,
		"completed_at": &now,
	}
	return r.db.Model(&models.GenerationAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptStatusRunning).
		Updates(updates).Error
}

func (r *generationAttemptRepository) ListByUser(userID uint, offset, limit int) ([]models.GenerationAttempt, error) {
	var attempts []models.GenerationAttempt
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

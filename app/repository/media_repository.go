package repository

import (
	"github.com/shotmakerhq/shotmaker/app/models"
	"gorm.io/gorm"
)

// mediaRepository implements the MediaRepository interface
type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new media repository instance
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(file *models.MediaFile) error {
	return r.db.Create(file).Error
}

func (r *mediaRepository) GetByUUID(uuid string) (*models.MediaFile, error) {
	var file models.MediaFile
	err := r.db.Where("uuid = ?", uuid).First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *mediaRepository) ListByEntity(projectID uint, entityType, entityID string) ([]models.MediaFile, error) {
	var files []models.MediaFile
	err := r.db.Where("project_id = ? AND entity_type = ? AND entity_id = ?", projectID, entityType, entityID).
		Order("draft_index ASC, image_index ASC").
		Find(&files).Error
	return files, err
}

func (r *mediaRepository) ListByProject(projectID uint) ([]models.MediaFile, error) {
	var files []models.MediaFile
	err := r.db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&files).Error
	return files, err
}

func (r *mediaRepository) Delete(id uint) error {
	return r.db.Delete(&models.MediaFile{}, id).Error
}

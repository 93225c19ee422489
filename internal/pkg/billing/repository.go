package billing

import (
	"time"

	"github.com/shotmakerhq/shotmaker/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookRepository persists webhook events for deduplication and auditing.
type WebhookRepository interface {
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormWebhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a webhook repository backed by GORM.
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &gormWebhookRepository{db: db}
}

// CreateWebhookEventIfNotExists inserts the event unless one with the same
// (provider, provider_event_id) already exists. Returns whether a row was
// created and the stored row either way, so redeliveries can be
// acknowledged without reprocessing.
func (r *gormWebhookRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
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
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (r *gormWebhookRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Project groups a user's styles, assets and generated media. Styles and
// asset definitions live inside Data as one JSON document; the editor reads
// and writes the whole document at once.
type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	Name        string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=1,max=200"`
	Description string         `gorm:"type:text;default:''" json:"description" validate:"max=2000"`
	Data        string         `gorm:"type:jsonb;not null;default:'{}'" json:"data"`
	StorageUsed int64          `gorm:"not null;default:0" json:"storage_used"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Project) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

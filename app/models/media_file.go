package models

import "time"

// Media entity types mirror the asset editor: a file always belongs to a
// style or to one asset (character, object, set).
const (
	MediaEntityStyle     = "style"
	MediaEntityCharacter = "character"
	MediaEntityObject    = "object"
	MediaEntitySet       = "set"
)

// MediaFile is one object stored in the S3-compatible bucket. ObjectKey
// follows the layout
// users/{userID}/projects/{projectUUID}/{entityType}/{entityID}/draft-{n}/image-{m}.png
type MediaFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	ProjectID  uint      `gorm:"not null;index" json:"project_id"`
	EntityType string    `gorm:"type:varchar(32);not null;index:idx_media_files_entity,priority:1" json:"entity_type"`
	EntityID   string    `gorm:"type:varchar(36);not null;index:idx_media_files_entity,priority:2" json:"entity_id"`
	DraftIndex int       `gorm:"not null;default:0" json:"draft_index"`
	ImageIndex int       `gorm:"not null;default:0" json:"image_index"`
	ObjectKey  string    `gorm:"type:varchar(512);not null" json:"object_key"`
	ThumbKey   string    `gorm:"type:varchar(512);default:''" json:"thumb_key,omitempty"`
	FileType   string    `gorm:"type:varchar(50);not null" json:"file_type"`
	SizeBytes  int64     `gorm:"not null;default:0" json:"size_bytes"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

package models

import "time"

// UserAPIKey stores a user's own generation-provider API key. The key is
// encrypted at rest; KeyHint keeps the last four characters for display.
type UserAPIKey struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index:ux_user_api_keys_user_provider,unique,priority:1" json:"user_id"`
	Provider     string    `gorm:"type:varchar(32);not null;default:'google';index:ux_user_api_keys_user_provider,unique,priority:2" json:"provider"`
	EncryptedKey string    `gorm:"type:text;not null" json:"-"`
	KeyHint      string    `gorm:"type:varchar(8);default:''" json:"key_hint"`
	IsValid      bool      `gorm:"default:true" json:"is_valid"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

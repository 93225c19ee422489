package models

import "time"

// Generation kinds and attempt states.
const (
	GenerationKindStyle           = "style"
	GenerationKindAsset           = "asset"
	GenerationKindAssetRefinement = "asset_refinement"

	AttemptStatusRunning   = "running"
	AttemptStatusSucceeded = "succeeded"
	AttemptStatusFailed    = "failed"
)

// GenerationAttempt is the audit record of one paid generation call. It is
// created in running state before the external call and moved to exactly one
// terminal state afterwards; it is never re-opened. Credits are spent on
// success only, with the attempt UUID as the ledger reference.
type GenerationAttempt struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UUID            string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	ProjectID       *uint      `gorm:"index" json:"project_id,omitempty"`
	Kind            string     `gorm:"type:varchar(32);not null" json:"kind"`
	Model           string     `gorm:"type:varchar(100);default:''" json:"model"`
	CreditsReserved int        `gorm:"not null" json:"credits_reserved"`
	Status          string     `gorm:"type:varchar(16);not null;default:'running';index" json:"status"`
	ErrorDetail     string     `gorm:"type:text;default:''" json:"error_detail,omitempty"`
	DurationMs      *int64     `json:"duration_ms,omitempty"`
	CompletedAt     *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

// IsTerminal reports whether the attempt already reached a final state.
func (a *GenerationAttempt) IsTerminal() bool {
	return a.Status == AttemptStatusSucceeded || a.Status == AttemptStatusFailed
}

package models

import "time"

// Ledger reasons. One constant per balance-affecting event kind.
const (
	CreditReasonSignupGrant         = "signup_grant"
	CreditReasonSubscriptionStart   = "subscription_start"
	CreditReasonSubscriptionRenewal = "subscription_renewal"
	CreditReasonCreditPackPurchase  = "credit_pack_purchase"
	CreditReasonStyleGeneration     = "style_generation"
	CreditReasonAssetGeneration     = "asset_generation"
	CreditReasonAssetRefinement     = "asset_refinement"
	CreditReasonAdminAdjustment     = "admin_adjustment"
)

// CreditTransaction is one immutable, signed balance change. Rows are only
// ever inserted, inside the same DB transaction that moves the user's
// balance. BalanceAfter lets the full history be replayed and checked
// against the live balance.
type CreditTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Amount       int       `gorm:"not null" json:"amount"`
	Reason       string    `gorm:"type:varchar(50);not null;index" json:"reason"`
	ReferenceID  string    `gorm:"type:varchar(191);default:'';index" json:"reference_id,omitempty"`
	BalanceAfter int       `gorm:"not null" json:"balance_after"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

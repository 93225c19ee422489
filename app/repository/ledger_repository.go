package repository

import (
	"context"
	"errors"

	"github.com/shotmakerhq/shotmaker/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Errors returned by the ledger. ErrInsufficientBalance is the authoritative
// rejection for any debit that would drive a balance below zero; when it is
// returned nothing has been written.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrZeroAmount          = errors.New("ledger delta must be nonzero")
)

// ledgerRepository implements the LedgerRepository interface
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository instance
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// GetBalance reads the current credit balance for a user.
func (r *ledgerRepository) GetBalance(ctx context.Context, userID uint) (int, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("credit_balance").First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.CreditBalance, nil
}

// ApplyDelta moves a user's balance by amount and appends the matching
// ledger entry as one atomic unit. The user row is locked for the duration
// of the transaction so concurrent deltas against the same account cannot
// interleave their balance check and write; across different accounts there
// is no ordering constraint.
//
// A non-empty referenceID that was already applied for this user makes the
// call a no-op returning the stored balance_after. The duplicate check runs
// after the row lock is taken, so at-least-once webhook redelivery cannot
// double-apply even when deliveries race.
func (r *ledgerRepository) ApplyDelta(ctx context.Context, userID uint, amount int, reason, referenceID string) (int, error) {
	if amount == 0 {
		return 0, ErrZeroAmount
	}

	var newBalance int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			return err
		}

		if referenceID != "" {
			var prior models.CreditTransaction
			err := tx.Where("user_id = ? AND reference_id = ?", userID, referenceID).First(&prior).Error
			if err == nil {
				newBalance = prior.BalanceAfter
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		next := user.CreditBalance + amount
		if next < 0 {
			return ErrInsufficientBalance
		}

		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("credit_balance", next).Error; err != nil {
			return err
		}

		entry := models.CreditTransaction{
			UserID:       userID,
			Amount:       amount,
			Reason:       reason,
			ReferenceID:  referenceID,
			BalanceAfter: next,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		newBalance = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ListRecent returns ledger entries for a user, newest first.
func (r *ledgerRepository) ListRecent(userID uint, offset, limit int) ([]models.CreditTransaction, error) {
	var entries []models.CreditTransaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	return entries, err
}

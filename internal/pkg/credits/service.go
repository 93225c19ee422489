package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/shotmakerhq/shotmaker/app/repository"
	"gorm.io/gorm"
)

// Errors surfaced to callers. ErrInsufficientCredits maps to HTTP 402 so the
// UI can prompt for an upgrade instead of showing a generic failure.
var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
)

// Service provides business-level credit operations on top of the ledger.
// It owns no state; every mutation goes through the ledger's atomic
// ApplyDelta, which re-validates the balance under a row lock. Callers must
// never read-then-write the balance themselves.
type Service struct {
	ledger repository.LedgerRepository
}

// NewService creates a credit accounting service from an injected ledger.
func NewService(ledger repository.LedgerRepository) *Service {
	return &Service{ledger: ledger}
}

// CheckSufficient reports whether the account currently holds at least
// required credits. It never mutates and is only a hint for early rejection;
// Spend re-validates atomically, so a passing check does not reserve
// anything.
func (s *Service) CheckSufficient(ctx context.Context, userID uint, required int) (bool, int, error) {
	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return false, 0, translate(err)
	}
	return balance >= required, balance, nil
}

// Spend debits amount credits. The ledger's atomic check is the
// authoritative rejection point, independent of any prior CheckSufficient
// call.
func (s *Service) Spend(ctx context.Context, userID uint, amount int, reason, referenceID string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("spend: %w", ErrInvalidAmount)
	}
	balance, err := s.ledger.ApplyDelta(ctx, userID, -amount, reason, referenceID)
	if err != nil {
		return 0, translate(err)
	}
	return balance, nil
}

// Grant credits amount credits.
func (s *Service) Grant(ctx context.Context, userID uint, amount int, reason, referenceID string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant: %w", ErrInvalidAmount)
	}
	balance, err := s.ledger.ApplyDelta(ctx, userID, amount, reason, referenceID)
	if err != nil {
		return 0, translate(err)
	}
	return balance, nil
}

// SetMonthlyAllowance moves the balance to an absolute target, as provider
// plan resets do on subscription start and renewal. The delta may be
// negative. A zero delta writes no ledger entry (no zero-amount audit
// noise) and is not an error; plan and subscription linkage updates are the
// reconciler's business and proceed regardless.
func (s *Service) SetMonthlyAllowance(ctx context.Context, userID uint, targetBalance int, reason, referenceID string) (int, error) {
	if targetBalance < 0 {
		return 0, fmt.Errorf("set allowance: %w", ErrInvalidAmount)
	}
	current, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return 0, translate(err)
	}
	delta := targetBalance - current
	if delta == 0 {
		return current, nil
	}
	balance, err := s.ledger.ApplyDelta(ctx, userID, delta, reason, referenceID)
	if err != nil {
		return 0, translate(err)
	}
	return balance, nil
}

// ListRecent returns the newest ledger entries for an account.
func (s *Service) ListRecent(userID uint, offset, limit int) ([]LedgerEntry, error) {
	rows, err := s.ledger.ListRecent(userID, offset, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, LedgerEntry{
			Amount:       row.Amount,
			Reason:       row.Reason,
			ReferenceID:  row.ReferenceID,
			BalanceAfter: row.BalanceAfter,
			CreatedAt:    row.CreatedAt,
		})
	}
	return entries, nil
}

// translate maps ledger-level failures to the service's named errors. Only
// the balance-insufficiency and not-found cases are domain errors; anything
// else propagates as an opaque infrastructure failure.
func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return ErrInsufficientCredits
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrAccountNotFound
	default:
		return err
	}
}

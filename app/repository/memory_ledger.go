package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shotmakerhq/shotmaker/app/models"
	"gorm.io/gorm"
)

// MemoryLedger is an in-memory LedgerRepository for tests and local
// development. A single mutex serializes every delta, mirroring the
// per-account row-lock semantics the SQL implementation gets from Postgres.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[uint]int
	entries  []models.CreditTransaction
	nextID   uint
}

// NewMemoryLedger creates a memory ledger seeded with the given balances.
func NewMemoryLedger(initial map[uint]int) *MemoryLedger {
	balances := make(map[uint]int, len(initial))
	for id, bal := range initial {
		balances[id] = bal
	}
	return &MemoryLedger{balances: balances, nextID: 1}
}

func (m *MemoryLedger) GetBalance(ctx context.Context, userID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return balance, nil
}

func (m *MemoryLedger) ApplyDelta(ctx context.Context, userID uint, amount int, reason, referenceID string) (int, error) {
	if amount == 0 {
		return 0, ErrZeroAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	balance, ok := m.balances[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}

	if referenceID != "" {
		for i := range m.entries {
			if m.entries[i].UserID == userID && m.entries[i].ReferenceID == referenceID {
				return m.entries[i].BalanceAfter, nil
			}
		}
	}

	next := balance + amount
	if next < 0 {
		return 0, ErrInsufficientBalance
	}

	m.balances[userID] = next
	m.entries = append(m.entries, models.CreditTransaction{
		ID:           m.nextID,
		UserID:       userID,
		Amount:       amount,
		Reason:       reason,
		ReferenceID:  referenceID,
		BalanceAfter: next,
		CreatedAt:    time.Now(),
	})
	m.nextID++

	return next, nil
}

func (m *MemoryLedger) ListRecent(userID uint, offset, limit int) ([]models.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []models.CreditTransaction
	for i := range m.entries {
		if m.entries[i].UserID == userID {
			entries = append(entries, m.entries[i])
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })

	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// Entries returns every ledger entry in creation order, for audit checks.
func (m *MemoryLedger) Entries(userID uint) []models.CreditTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []models.CreditTransaction
	for i := range m.entries {
		if m.entries[i].UserID == userID {
			entries = append(entries, m.entries[i])
		}
	}
	return entries
}

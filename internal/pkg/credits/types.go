package credits

import "time"

// LedgerEntry is the API-facing view of one credit transaction.
type LedgerEntry struct {
	Amount       int       `json:"amount"`
	Reason       string    `json:"reason"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	BalanceAfter int       `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

package models

// SettlementStatus is the lifecycle state of a settlement record.
// The transition is one-way: pending -> completed. A completed record stays
// in the ledger and keeps participating in every netting calculation; the
// status exists for display and audit, not to gate the math.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s SettlementStatus) Valid() bool {
	return s == SettlementPending || s == SettlementCompleted
}

// SettlementRecord is one persisted bilateral obligation.
//
// Records are created per expense split (one for every split whose user is
// not the payer) or directly for a manual payment. Duplicates across
// expenses are expected: the same pair of users accumulates many records,
// and netting happens at read time.
type SettlementRecord struct {
	// ID is the unique identifier for the record (UUID format).
	ID string

	// GroupID is the group that owns this record.
	GroupID string

	// ExpenseID links the record to the expense it was derived from.
	// Empty for manual out-of-band payments.
	ExpenseID string

	// PayerID is the debtor: the user who owes this amount.
	PayerID string

	// PayeeID is the creditor: the user who is owed this amount.
	// Always different from PayerID; self-pay records are never created.
	PayeeID string

	// Amount is the obligation amount, always positive.
	Amount float64

	// Currency is an ISO 4217 code, carried through from the expense or
	// group. Netting does not group by currency (see internal/netting).
	Currency string

	// Status is pending or completed.
	Status SettlementStatus

	// Description is a human-readable label, e.g. "Share for Groceries".
	Description string

	// CreatedAt is the Unix timestamp when the record was created.
	CreatedAt int64
}

// OptimizedSettlement is one payment suggested by a netting algorithm:
// FromUserID (debtor) pays ToUserID (creditor) Amount. It is ephemeral
// output, never persisted individually; only the folded per-user balances
// are cached.
type OptimizedSettlement struct {
	FromUserID string
	ToUserID   string
	Amount     float64
}

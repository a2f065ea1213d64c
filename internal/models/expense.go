package models

// ExpenseSplit is one line of an expense: the share a single participant owes.
type ExpenseSplit struct {
	// UserID identifies the participant this share belongs to.
	UserID string

	// Amount is this participant's share of the expense total.
	Amount float64
}

// Expense represents a shared cost paid by one group member on behalf of
// several. The splits must sum to Amount within the 0.01 tolerance; this is
// validated before an expense enters storage.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// CreatedBy is the user who recorded the expense.
	CreatedBy string

	// PaidBy is the user who fronted the money (the creditor of every
	// settlement record derived from this expense).
	PaidBy string

	// Description is a human-readable label, e.g. "Groceries".
	Description string

	// Amount is the expense total.
	Amount float64

	// Currency is an ISO 4217 code. Defaults to the group currency.
	Currency string

	// Splits is the ordered list of per-participant shares.
	Splits []ExpenseSplit

	// Tags are optional free-form labels.
	Tags []string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// SplitFor returns the share recorded for the given user, or zero if the
// user has no split line on this expense.
func (e *Expense) SplitFor(userID string) float64 {
	for _, s := range e.Splits {
		if s.UserID == userID {
			return s.Amount
		}
	}
	return 0
}

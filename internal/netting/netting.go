// Package netting collapses a group's settlement records into a small set of
// suggested payments.
//
// Two algorithms are provided. Pairwise ("normal") nets only direct
// relationships: all records between each pair of users become at most one
// payment, with no chaining through third parties. GreedyMatch ("advanced",
// the default) computes one net balance per user and matches the largest
// debtors against the largest creditors; it approximates — but does not
// guarantee — the minimum number of transactions, since the exact problem is
// NP-hard. Both agree on every user's aggregate net balance.
//
// All records participate regardless of status: a completed settlement is a
// real transfer event and nets against the debt it discharges exactly like a
// pending one. Amounts are summed without grouping by currency; a group that
// mixes currencies will have them silently summed together.
package netting

// Record is the minimal view of a settlement record the algorithms need.
// PayerID is the debtor, PayeeID the creditor.
type Record struct {
	PayerID string
	PayeeID string
	Amount  float64
}

// Transfer is one suggested payment: FromUserID (debtor) pays ToUserID
// (creditor) Amount, rounded to two decimals.
type Transfer struct {
	FromUserID string
	ToUserID   string
	Amount     float64
}

// NetBalances accumulates the signed net position of every user mentioned in
// records. The returned map follows the record orientation: a debtor's
// balance grows positive (owes into the system), a creditor's grows negative
// (is owed). Callers wanting the display convention (positive = owed money)
// negate the values.
func NetBalances(records []Record) map[string]float64 {
	balances := make(map[string]float64)
	for _, r := range records {
		balances[r.PayerID] += r.Amount
		balances[r.PayeeID] -= r.Amount
	}
	return balances
}

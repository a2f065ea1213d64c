package netting

import (
	"sort"

	"splitledger/internal/money"
)

// side is one entry in the debtor or creditor worklist.
type side struct {
	userID string
	amount float64
}

// GreedyMatch computes one net balance per user and matches the largest
// debtors against the largest creditors with a two-pointer sweep, yielding
// at most N-1 transfers for N users with nonzero net balance.
//
// The descending sort (ties broken by user ID) and the <= epsilon advance
// rule are part of the contract: callers rely on the exact payment set being
// stable for a given record set.
func GreedyMatch(records []Record) []Transfer {
	balances := NetBalances(records)

	var debtors, creditors []side
	for userID, balance := range balances {
		if balance > money.Epsilon {
			debtors = append(debtors, side{userID, balance})
		} else if balance < -money.Epsilon {
			creditors = append(creditors, side{userID, -balance})
		}
	}
	sortSides(debtors)
	sortSides(creditors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount < amount {
			amount = creditors[j].amount
		}

		if amount > money.Epsilon {
			transfers = append(transfers, Transfer{
				FromUserID: debtors[i].userID,
				ToUserID:   creditors[j].userID,
				Amount:     money.Round2(amount),
			})
		}

		debtors[i].amount -= amount
		creditors[j].amount -= amount

		// Both sides may be exhausted by the same match.
		if debtors[i].amount <= money.Epsilon {
			i++
		}
		if creditors[j].amount <= money.Epsilon {
			j++
		}
	}
	return transfers
}

// sortSides orders a worklist descending by amount, user ID ascending on
// ties, so equal record sets always produce the same match sequence.
func sortSides(s []side) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].amount != s[j].amount {
			return s[i].amount > s[j].amount
		}
		return s[i].userID < s[j].userID
	})
}

package netting

import (
	"sort"

	"splitledger/internal/money"
)

// pair is an ordered (debtor, creditor) key into the obligation matrix.
// Using an explicit struct key keeps the sparse matrix visible: only pairs
// with actual history appear.
type pair struct {
	debtor   string
	creditor string
}

// Pairwise nets all records between each pair of users into at most one
// transfer. Each unordered pair is visited exactly once; the output is
// sorted by (from, to) so iteration order can never affect the result.
func Pairwise(records []Record) []Transfer {
	// owed[{a,b}] = total a owes b across all records.
	owed := make(map[pair]float64)
	for _, r := range records {
		owed[pair{r.PayerID, r.PayeeID}] += r.Amount
	}

	processed := make(map[pair]bool)
	var transfers []Transfer
	for p := range owed {
		key := p
		if key.creditor < key.debtor {
			key = pair{key.creditor, key.debtor}
		}
		if processed[key] {
			continue
		}
		processed[key] = true

		a, b := key.debtor, key.creditor
		net := owed[pair{a, b}] - owed[pair{b, a}]
		switch {
		case net > money.Epsilon:
			transfers = append(transfers, Transfer{
				FromUserID: a,
				ToUserID:   b,
				Amount:     money.Round2(net),
			})
		case net < -money.Epsilon:
			transfers = append(transfers, Transfer{
				FromUserID: b,
				ToUserID:   a,
				Amount:     money.Round2(-net),
			})
		}
	}

	sort.Slice(transfers, func(i, j int) bool {
		if transfers[i].FromUserID != transfers[j].FromUserID {
			return transfers[i].FromUserID < transfers[j].FromUserID
		}
		return transfers[i].ToUserID < transfers[j].ToUserID
	})
	return transfers
}

package netting

import (
	"math"
	"testing"
)

// equalSplitRecords builds the records an equal-split expense would derive:
// payer fronts the total, every other participant owes their share.
func equalSplitRecords(payer string, share float64, others ...string) []Record {
	var records []Record
	for _, o := range others {
		records = append(records, Record{PayerID: o, PayeeID: payer, Amount: share})
	}
	return records
}

func TestGreedyMatch_EqualSplit(t *testing.T) {
	// A pays 100 split equally among A,B,C,D: B, C and D each owe A 25.
	records := equalSplitRecords("A", 25, "B", "C", "D")

	transfers := GreedyMatch(records)
	if len(transfers) != 3 {
		t.Fatalf("expected 3 transfers, got %d: %v", len(transfers), transfers)
	}

	want := map[string]float64{"B": 25, "C": 25, "D": 25}
	for _, tr := range transfers {
		if tr.ToUserID != "A" {
			t.Errorf("transfer %v should pay A", tr)
		}
		expected, ok := want[tr.FromUserID]
		if !ok {
			t.Errorf("unexpected debtor %s", tr.FromUserID)
			continue
		}
		if math.Abs(tr.Amount-expected) > 0.01 {
			t.Errorf("%s -> A = %v, want %v", tr.FromUserID, tr.Amount, expected)
		}
		delete(want, tr.FromUserID)
	}
	if len(want) != 0 {
		t.Errorf("missing transfers from %v", want)
	}

	balances := NetBalances(records)
	if math.Abs(balances["A"]-(-75)) > 0.01 {
		t.Errorf("A net = %v, want -75 (owed 75)", balances["A"])
	}
	for _, u := range []string{"B", "C", "D"} {
		if math.Abs(balances[u]-25) > 0.01 {
			t.Errorf("%s net = %v, want 25 (owes 25)", u, balances[u])
		}
	}
}

func TestGreedyMatch_MultiPartyTrace(t *testing.T) {
	// Debtors X:60, Y:40; creditors Z:70, W:30. The descending match must
	// produce exactly X->Z 60, Y->Z 10, Y->W 30.
	records := []Record{
		{PayerID: "X", PayeeID: "Z", Amount: 60},
		{PayerID: "Y", PayeeID: "Z", Amount: 10},
		{PayerID: "Y", PayeeID: "W", Amount: 30},
	}

	transfers := GreedyMatch(records)
	want := []Transfer{
		{FromUserID: "X", ToUserID: "Z", Amount: 60},
		{FromUserID: "Y", ToUserID: "Z", Amount: 10},
		{FromUserID: "Y", ToUserID: "W", Amount: 30},
	}
	if len(transfers) != len(want) {
		t.Fatalf("expected %d transfers, got %d: %v", len(want), len(transfers), transfers)
	}
	var total float64
	for i, tr := range transfers {
		if tr.FromUserID != want[i].FromUserID || tr.ToUserID != want[i].ToUserID {
			t.Errorf("step %d: got %s->%s, want %s->%s",
				i, tr.FromUserID, tr.ToUserID, want[i].FromUserID, want[i].ToUserID)
		}
		if math.Abs(tr.Amount-want[i].Amount) > 0.01 {
			t.Errorf("step %d: amount = %v, want %v", i, tr.Amount, want[i].Amount)
		}
		total += tr.Amount
	}
	if math.Abs(total-100) > 0.01 {
		t.Errorf("total settled = %v, want 100", total)
	}
}

func TestGreedyMatch_AtMostNMinusOne(t *testing.T) {
	records := []Record{
		{PayerID: "B", PayeeID: "A", Amount: 10},
		{PayerID: "C", PayeeID: "A", Amount: 20},
		{PayerID: "D", PayeeID: "B", Amount: 15},
		{PayerID: "A", PayeeID: "D", Amount: 5},
		{PayerID: "E", PayeeID: "C", Amount: 7.5},
	}

	participants := make(map[string]bool)
	for id, bal := range NetBalances(records) {
		if math.Abs(bal) > 0.01 {
			participants[id] = true
		}
	}

	transfers := GreedyMatch(records)
	if len(transfers) > len(participants)-1 {
		t.Errorf("got %d transfers for %d participants, want at most %d",
			len(transfers), len(participants), len(participants)-1)
	}
}

func TestGreedyMatch_Conservation(t *testing.T) {
	records := []Record{
		{PayerID: "B", PayeeID: "A", Amount: 33.34},
		{PayerID: "C", PayeeID: "A", Amount: 33.33},
		{PayerID: "A", PayeeID: "B", Amount: 12.50},
		{PayerID: "C", PayeeID: "B", Amount: 12.50},
		{PayerID: "B", PayeeID: "C", Amount: 41.99},
	}

	raw := NetBalances(records)
	folded := make(map[string]float64)
	for _, tr := range GreedyMatch(records) {
		folded[tr.FromUserID] += tr.Amount
		folded[tr.ToUserID] -= tr.Amount
	}
	for user, balance := range raw {
		if math.Abs(folded[user]-balance) > 0.01 {
			t.Errorf("user %s: folded transfers give %v, raw net is %v", user, folded[user], balance)
		}
	}
}

func TestGreedyMatch_ZeroSum(t *testing.T) {
	records := []Record{
		{PayerID: "B", PayeeID: "A", Amount: 19.99},
		{PayerID: "C", PayeeID: "A", Amount: 0.02},
		{PayerID: "A", PayeeID: "C", Amount: 7},
		{PayerID: "C", PayeeID: "B", Amount: 13.45},
	}
	var sum float64
	for _, balance := range NetBalances(records) {
		sum += balance
	}
	if math.Abs(sum) > 0.01 {
		t.Errorf("net balances sum to %v, want 0", sum)
	}
}

func TestGreedyMatch_IgnoresSettledPairs(t *testing.T) {
	// A owes B 20, and a completed payment of 20 already flowed back:
	// nothing left to settle.
	records := []Record{
		{PayerID: "A", PayeeID: "B", Amount: 20},
		{PayerID: "B", PayeeID: "A", Amount: 20},
	}
	if transfers := GreedyMatch(records); len(transfers) != 0 {
		t.Errorf("expected no transfers, got %v", transfers)
	}
}

func TestGreedyMatch_Empty(t *testing.T) {
	if transfers := GreedyMatch(nil); len(transfers) != 0 {
		t.Errorf("expected no transfers for empty input, got %v", transfers)
	}
}

func TestGreedyMatch_Deterministic(t *testing.T) {
	records := []Record{
		{PayerID: "B", PayeeID: "A", Amount: 30},
		{PayerID: "C", PayeeID: "A", Amount: 30},
		{PayerID: "D", PayeeID: "E", Amount: 30},
	}
	first := GreedyMatch(records)
	for run := 0; run < 20; run++ {
		again := GreedyMatch(records)
		if len(again) != len(first) {
			t.Fatalf("run %d: got %d transfers, want %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d: transfer %d = %v, want %v", run, i, again[i], first[i])
			}
		}
	}
}

func TestGreedyMatch_RoundsToTwoDecimals(t *testing.T) {
	records := []Record{
		{PayerID: "B", PayeeID: "A", Amount: 33.333333},
	}
	transfers := GreedyMatch(records)
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(transfers))
	}
	if transfers[0].Amount != 33.33 {
		t.Errorf("amount = %v, want 33.33", transfers[0].Amount)
	}
}

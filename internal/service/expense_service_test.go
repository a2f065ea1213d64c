package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"splitledger/internal/models"
)

func TestCreateExpenseGeneratesRecords(t *testing.T) {
	expenses, _, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob", "carol", "dave")

	expense, records, err := expenses.CreateExpense(ctx, group.ID, ExpenseInput{
		PaidBy:      "alice",
		Description: "Groceries",
		Amount:      100,
		Splits:      equalSplit(100, "alice", "bob", "carol", "dave"),
	}, "alice")
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if expense.Currency != "USD" {
		t.Errorf("expense currency = %s, want group default USD", expense.Currency)
	}

	// One record per non-payer split; never a self-pay record.
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for _, r := range records {
		if r.PayerID == r.PayeeID {
			t.Errorf("self-pay record created: %+v", r)
		}
		if r.PayeeID != "alice" {
			t.Errorf("record payee = %s, want alice", r.PayeeID)
		}
		if math.Abs(r.Amount-25) > 0.01 {
			t.Errorf("record amount = %v, want 25", r.Amount)
		}
		if r.Status != models.SettlementPending {
			t.Errorf("record status = %s, want pending", r.Status)
		}
		if r.ExpenseID != expense.ID {
			t.Errorf("record expense id = %s, want %s", r.ExpenseID, expense.ID)
		}
		if r.Description != "Share for Groceries" {
			t.Errorf("record description = %q", r.Description)
		}
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	expenses, _, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob")

	tests := []struct {
		name    string
		groupID string
		input   ExpenseInput
		userID  string
		wantErr error
	}{
		{
			name:    "splits do not sum to total",
			groupID: group.ID,
			input: ExpenseInput{
				PaidBy: "alice", Amount: 100,
				Splits: []models.ExpenseSplit{{UserID: "alice", Amount: 50}, {UserID: "bob", Amount: 40}},
			},
			userID:  "alice",
			wantErr: ErrValidation,
		},
		{
			name:    "payer not a member",
			groupID: group.ID,
			input: ExpenseInput{
				PaidBy: "mallory", Amount: 10,
				Splits: equalSplit(10, "alice", "bob"),
			},
			userID:  "alice",
			wantErr: ErrValidation,
		},
		{
			name:    "caller not a member",
			groupID: group.ID,
			input: ExpenseInput{
				PaidBy: "alice", Amount: 10,
				Splits: equalSplit(10, "alice", "bob"),
			},
			userID:  "mallory",
			wantErr: ErrUnauthorized,
		},
		{
			name:    "group missing",
			groupID: "nope",
			input: ExpenseInput{
				PaidBy: "alice", Amount: 10,
				Splits: equalSplit(10, "alice", "bob"),
			},
			userID:  "alice",
			wantErr: ErrNotFound,
		},
		{
			name:    "non-positive amount",
			groupID: group.ID,
			input: ExpenseInput{
				PaidBy: "alice", Amount: 0,
				Splits: []models.ExpenseSplit{{UserID: "bob", Amount: 0}},
			},
			userID:  "alice",
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := expenses.CreateExpense(ctx, tt.groupID, tt.input, tt.userID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateExpenseSkipsNegligibleShares(t *testing.T) {
	expenses, _, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob", "carol")

	_, records, err := expenses.CreateExpense(ctx, group.ID, ExpenseInput{
		PaidBy: "alice", Description: "Rounding dust", Amount: 10.005,
		Splits: []models.ExpenseSplit{
			{UserID: "alice", Amount: 0},
			{UserID: "bob", Amount: 10},
			{UserID: "carol", Amount: 0.005},
		},
	}, "alice")
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected carol's dust share to be skipped, got %d records", len(records))
	}
	if records[0].PayerID != "bob" {
		t.Errorf("surviving record debtor = %s, want bob", records[0].PayerID)
	}
}

func TestListGroupExpenses(t *testing.T) {
	expenses, _, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob")

	for _, desc := range []string{"Breakfast", "Lunch"} {
		if _, _, err := expenses.CreateExpense(ctx, group.ID, ExpenseInput{
			PaidBy: "alice", Description: desc, Amount: 20,
			Splits: equalSplit(20, "alice", "bob"),
		}, "alice"); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
	}

	list, err := expenses.ListGroupExpenses(ctx, group.ID, "bob")
	if err != nil {
		t.Fatalf("ListGroupExpenses failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(list))
	}

	if _, err := expenses.ListGroupExpenses(ctx, group.ID, "mallory"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for outsider, got %v", err)
	}
}

func TestUpdateExpenseRegeneratesRecords(t *testing.T) {
	expenses, balances, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob", "carol")

	expense, _, err := expenses.CreateExpense(ctx, group.ID, ExpenseInput{
		PaidBy: "alice", Description: "Dinner", Amount: 60,
		Splits: equalSplit(60, "alice", "bob", "carol"),
	}, "alice")
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	newAmount := 90.0
	if _, err := expenses.UpdateExpense(ctx, group.ID, expense.ID, ExpenseUpdate{
		Amount: &newAmount,
		Splits: equalSplit(90, "alice", "bob", "carol"),
	}, "alice"); err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}

	records, err := store.ListRecordsByGroup(ctx, group.ID, "")
	if err != nil {
		t.Fatalf("ListRecordsByGroup failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected records to be regenerated (2), got %d", len(records))
	}
	for _, r := range records {
		if math.Abs(r.Amount-30) > 0.01 {
			t.Errorf("regenerated record amount = %v, want 30", r.Amount)
		}
	}

	cached, err := balances.GetCached(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetCached failed: %v", err)
	}
	if math.Abs(cached["alice"]-60) > 0.01 {
		t.Errorf("alice cached balance = %v, want 60", cached["alice"])
	}
}

func TestUpdateExpenseCreatorOnly(t *testing.T) {
	expenses, _, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob")

	expense, _, err := expenses.CreateExpense(ctx, group.ID, ExpenseInput{
		PaidBy: "alice", Amount: 10, Splits: equalSplit(10, "alice", "bob"),
	}, "alice")
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	desc := "edited"
	if _, err := expenses.UpdateExpense(ctx, group.ID, expense.ID, ExpenseUpdate{Description: &desc}, "bob"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for non-creator update, got %v", err)
	}
	if err := expenses.DeleteExpense(ctx, group.ID, expense.ID, "bob"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for non-creator delete, got %v", err)
	}
}

func TestDeleteExpenseRemovesRecords(t *testing.T) {
	expenses, balances, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob")

	expense, _, err := expenses.CreateExpense(ctx, group.ID, ExpenseInput{
		PaidBy: "alice", Amount: 50, Splits: equalSplit(50, "alice", "bob"),
	}, "alice")
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	if err := expenses.DeleteExpense(ctx, group.ID, expense.ID, "alice"); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}

	records, _ := store.ListRecordsByGroup(ctx, group.ID, "")
	if len(records) != 0 {
		t.Errorf("expected no records after delete, got %d", len(records))
	}

	cached, err := balances.GetCached(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetCached failed: %v", err)
	}
	for user, balance := range cached {
		if math.Abs(balance) > 0.01 {
			t.Errorf("user %s still has balance %v after delete", user, balance)
		}
	}
}

func TestManualSettlementNetsAgainstDebt(t *testing.T) {
	expenses, balances, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob")

	if _, _, err := expenses.CreateExpense(ctx, group.ID, ExpenseInput{
		PaidBy: "alice", Description: "Rent", Amount: 50,
		Splits: equalSplit(50, "alice", "bob"),
	}, "alice"); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	record, err := expenses.CreateManualSettlement(ctx, group.ID, ManualSettlementInput{
		PayerID: "alice", PayeeID: "bob", Amount: 25,
	}, "bob")
	if err != nil {
		t.Fatalf("CreateManualSettlement failed: %v", err)
	}
	if record.Status != models.SettlementCompleted {
		t.Errorf("manual settlement status = %s, want completed", record.Status)
	}
	if record.ExpenseID != "" {
		t.Errorf("manual settlement should not reference an expense, got %q", record.ExpenseID)
	}

	// Bob owed alice 25; the reverse entry nets his debt to zero.
	cached, err := balances.GetCached(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetCached failed: %v", err)
	}
	for user, balance := range cached {
		if math.Abs(balance) > 0.01 {
			t.Errorf("user %s balance = %v, want 0 after offsetting payment", user, balance)
		}
	}

	if _, err := expenses.CreateManualSettlement(ctx, group.ID, ManualSettlementInput{
		PayerID: "alice", PayeeID: "alice", Amount: 5,
	}, "alice"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for self-payment, got %v", err)
	}
	if _, err := expenses.CreateManualSettlement(ctx, group.ID, ManualSettlementInput{
		PayerID: "alice", PayeeID: "bob", Amount: 0,
	}, "alice"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for zero amount, got %v", err)
	}
}

func TestUpdateSettlementStatusOneWay(t *testing.T) {
	expenses, _, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob")

	_, records, err := expenses.CreateExpense(ctx, group.ID, ExpenseInput{
		PaidBy: "alice", Amount: 30, Splits: equalSplit(30, "alice", "bob"),
	}, "alice")
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	recordID := records[0].ID

	record, err := expenses.UpdateSettlementStatus(ctx, group.ID, recordID, models.SettlementCompleted, "bob")
	if err != nil {
		t.Fatalf("UpdateSettlementStatus failed: %v", err)
	}
	if record.Status != models.SettlementCompleted {
		t.Errorf("status = %s, want completed", record.Status)
	}

	// Completing again is a no-op, moving backwards is rejected.
	if _, err := expenses.UpdateSettlementStatus(ctx, group.ID, recordID, models.SettlementCompleted, "bob"); err != nil {
		t.Errorf("repeated completion should be a no-op, got %v", err)
	}
	if _, err := expenses.UpdateSettlementStatus(ctx, group.ID, recordID, models.SettlementPending, "bob"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for backwards transition, got %v", err)
	}
	if _, err := expenses.UpdateSettlementStatus(ctx, group.ID, recordID, "cancelled", "bob"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown status, got %v", err)
	}

	// The completed record is still on the ledger.
	stored, err := store.GetSettlementRecord(ctx, recordID)
	if err != nil {
		t.Fatalf("GetSettlementRecord failed: %v", err)
	}
	if stored.Status != models.SettlementCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
}

func TestDeleteSettlement(t *testing.T) {
	expenses, balances, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob")

	record, err := expenses.CreateManualSettlement(ctx, group.ID, ManualSettlementInput{
		PayerID: "bob", PayeeID: "alice", Amount: 15,
	}, "alice")
	if err != nil {
		t.Fatalf("CreateManualSettlement failed: %v", err)
	}

	if err := expenses.DeleteSettlement(ctx, group.ID, record.ID, "alice"); err != nil {
		t.Fatalf("DeleteSettlement failed: %v", err)
	}
	if records, _ := store.ListRecordsByGroup(ctx, group.ID, ""); len(records) != 0 {
		t.Errorf("expected no records after delete, got %d", len(records))
	}

	cached, err := balances.GetCached(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetCached failed: %v", err)
	}
	for user, balance := range cached {
		if math.Abs(balance) > 0.01 {
			t.Errorf("user %s balance = %v after deleting the only record", user, balance)
		}
	}

	if err := expenses.DeleteSettlement(ctx, group.ID, record.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestListGroupSettlements(t *testing.T) {
	expenses, _, store := newTestServices(t)
	ctx := context.Background()
	group := newTestGroup(t, store, "alice", "bob", "carol")

	if _, _, err := expenses.CreateExpense(ctx, group.ID, ExpenseInput{
		PaidBy: "alice", Amount: 30, Splits: equalSplit(30, "alice", "bob", "carol"),
	}, "alice"); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if _, err := expenses.CreateManualSettlement(ctx, group.ID, ManualSettlementInput{
		PayerID: "bob", PayeeID: "alice", Amount: 10,
	}, "bob"); err != nil {
		t.Fatalf("CreateManualSettlement failed: %v", err)
	}

	all, err := expenses.ListGroupSettlements(ctx, group.ID, "", "alice")
	if err != nil {
		t.Fatalf("ListGroupSettlements failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records, got %d", len(all))
	}

	completed, err := expenses.ListGroupSettlements(ctx, group.ID, models.SettlementCompleted, "alice")
	if err != nil {
		t.Fatalf("ListGroupSettlements(completed) failed: %v", err)
	}
	if len(completed) != 1 {
		t.Errorf("expected 1 completed record, got %d", len(completed))
	}

	if _, err := expenses.ListGroupSettlements(ctx, group.ID, "bogus", "alice"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for bogus status, got %v", err)
	}
	if _, err := expenses.ListGroupSettlements(ctx, group.ID, "", "mallory"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for outsider, got %v", err)
	}
}

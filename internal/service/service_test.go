package service

import (
	"context"
	"path/filepath"
	"testing"

	"splitledger/internal/models"
	"splitledger/internal/storage"
	"splitledger/internal/storage/sqlite"
)

// newTestServices wires the services over a temp SQLite store.
func newTestServices(t *testing.T) (*ExpenseService, *BalanceService, storage.Store) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	balances := NewBalanceService(store)
	expenses := NewExpenseService(store, balances)
	return expenses, balances, store
}

func newTestGroup(t *testing.T, store storage.Store, members ...string) *models.Group {
	t.Helper()
	group := &models.Group{
		Name:      "Flat 4B",
		CreatedBy: members[0],
		Members:   members,
	}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	return group
}

// equalSplit builds splits that divide amount evenly among users.
func equalSplit(amount float64, users ...string) []models.ExpenseSplit {
	share := amount / float64(len(users))
	splits := make([]models.ExpenseSplit, len(users))
	for i, u := range users {
		splits[i] = models.ExpenseSplit{UserID: u, Amount: share}
	}
	return splits
}

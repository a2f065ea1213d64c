// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"splitledger/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrStaleVersion is returned by PutGroupBalances when the presented version
// no longer matches the stored cache entry: another writer got there first
// and the caller must recompute from a fresh snapshot.
var ErrStaleVersion = errors.New("stale balance version")

// Store defines the interface for ledger storage operations. The abstraction
// allows swapping storage backends (SQLite, PostgreSQL, etc.) without
// changing the service layer.
type Store interface {
	// CreateGroup persists a new group. ID and CreatedAt are populated by
	// the store when unset.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its member list.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// AddGroupMembers adds the given user IDs to a group, ignoring ones
	// already present.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error

	// ListGroupsForUser returns the groups a user belongs to (as member or
	// creator), up to limit.
	ListGroupsForUser(ctx context.Context, userID string, limit int) ([]*models.Group, error)

	// CreateExpense persists a new expense with its splits.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its splits.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// UpdateExpense replaces an expense's mutable fields and splits.
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense removes an expense and its splits.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ListExpensesByGroup returns a group's expenses, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// CreateSettlementRecords persists a batch of records as a single
	// all-or-nothing unit. IDs and CreatedAt are populated when unset.
	CreateSettlementRecords(ctx context.Context, records []*models.SettlementRecord) error

	// GetSettlementRecord retrieves one record.
	GetSettlementRecord(ctx context.Context, recordID string) (*models.SettlementRecord, error)

	// ListRecordsByGroup returns a group's records, optionally filtered by
	// status (empty status means all), newest first.
	ListRecordsByGroup(ctx context.Context, groupID string, status models.SettlementStatus) ([]*models.SettlementRecord, error)

	// DeleteRecordsForExpense removes every record derived from an
	// expense. Used before regenerating on expense update.
	DeleteRecordsForExpense(ctx context.Context, expenseID string) error

	// UpdateRecordStatus sets a record's status.
	UpdateRecordStatus(ctx context.Context, recordID string, status models.SettlementStatus) error

	// DeleteSettlementRecord removes one record.
	DeleteSettlementRecord(ctx context.Context, recordID string) error

	// GetGroupBalances retrieves the cached balances for a group, or
	// ErrNotFound when the cache has never been written.
	GetGroupBalances(ctx context.Context, groupID string) (*models.GroupBalances, error)

	// PutGroupBalances atomically replaces a group's cached balances.
	// prevVersion must be the Version the writer read (zero when the cache
	// was absent); a mismatch returns ErrStaleVersion and leaves the
	// stored entry untouched.
	PutGroupBalances(ctx context.Context, groupID string, balances map[string]float64, prevVersion int64) (*models.GroupBalances, error)

	// Close releases any resources held by the store.
	Close() error
}

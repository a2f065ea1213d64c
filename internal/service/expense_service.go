package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"splitledger/internal/models"
	"splitledger/internal/money"
	"splitledger/internal/storage"
)

// ExpenseService owns the mutation side of the ledger: expenses, the
// settlement records derived from them, and manual settlements. Every
// mutation ends with a synchronous balance recalculation for the touched
// group, so the cache always reflects the complete current record set.
type ExpenseService struct {
	store    storage.Store
	balances *BalanceService
}

// NewExpenseService creates an ExpenseService over the given store and
// balance service.
func NewExpenseService(store storage.Store, balances *BalanceService) *ExpenseService {
	return &ExpenseService{store: store, balances: balances}
}

// ExpenseInput carries the validated fields for a new expense.
type ExpenseInput struct {
	PaidBy      string
	Description string
	Amount      float64
	Currency    string
	Splits      []models.ExpenseSplit
	Tags        []string
}

// ExpenseUpdate carries a partial expense update. Nil fields are left
// unchanged; updating splits or amount regenerates the derived records.
type ExpenseUpdate struct {
	Description *string
	Amount      *float64
	Splits      []models.ExpenseSplit
	Tags        []string
}

// ManualSettlementInput carries the fields for an out-of-band payment.
type ManualSettlementInput struct {
	PayerID     string
	PayeeID     string
	Amount      float64
	Description string
}

// CreateExpense validates and persists an expense, derives one settlement
// record per non-payer split as a single all-or-nothing unit, and refreshes
// the group's cached balances.
func (s *ExpenseService) CreateExpense(ctx context.Context, groupID string, input ExpenseInput, userID string) (*models.Expense, []*models.SettlementRecord, error) {
	group, err := requireMember(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !group.HasMember(input.PaidBy) {
		return nil, nil, fmt.Errorf("payer %s is not a member of group %s: %w", input.PaidBy, groupID, ErrValidation)
	}
	if err := validateSplits(input.Splits, input.Amount); err != nil {
		return nil, nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = group.Currency
	}
	expense := &models.Expense{
		GroupID:     groupID,
		CreatedBy:   userID,
		PaidBy:      input.PaidBy,
		Description: input.Description,
		Amount:      input.Amount,
		Currency:    currency,
		Splits:      input.Splits,
		Tags:        input.Tags,
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "group_id", groupID, "error", err)
		return nil, nil, err
	}

	records := deriveRecords(expense)
	if err := s.store.CreateSettlementRecords(ctx, records); err != nil {
		slog.Error("CreateExpense: record generation failed", "expense_id", expense.ID, "error", err)
		return nil, nil, err
	}

	if _, err := s.balances.Recalculate(ctx, groupID); err != nil {
		return nil, nil, err
	}

	slog.Info("expense created",
		"group_id", groupID,
		"expense_id", expense.ID,
		"amount", expense.Amount,
		"records", len(records),
	)
	return expense, records, nil
}

// GetExpense retrieves one expense for a group member.
func (s *ExpenseService) GetExpense(ctx context.Context, groupID, expenseID, userID string) (*models.Expense, error) {
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}
	return s.expenseInGroup(ctx, groupID, expenseID)
}

// ListGroupExpenses returns a group's expenses for a member, newest first.
func (s *ExpenseService) ListGroupExpenses(ctx context.Context, groupID, userID string) ([]*models.Expense, error) {
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}
	return s.store.ListExpensesByGroup(ctx, groupID)
}

// UpdateExpense applies a partial update. If splits or amount change, every
// record derived from the expense is deleted and regenerated before the
// group's balances are recalculated. Only the expense creator may update.
func (s *ExpenseService) UpdateExpense(ctx context.Context, groupID, expenseID string, update ExpenseUpdate, userID string) (*models.Expense, error) {
	expense, err := s.expenseInGroup(ctx, groupID, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.CreatedBy != userID {
		return nil, fmt.Errorf("user %s did not create expense %s: %w", userID, expenseID, ErrUnauthorized)
	}

	if update.Description != nil {
		expense.Description = *update.Description
	}
	if update.Amount != nil {
		expense.Amount = *update.Amount
	}
	if update.Splits != nil {
		expense.Splits = update.Splits
	}
	if update.Tags != nil {
		expense.Tags = update.Tags
	}

	regenerate := update.Amount != nil || update.Splits != nil
	if regenerate {
		if err := validateSplits(expense.Splits, expense.Amount); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateExpense(ctx, expense); err != nil {
		slog.Error("UpdateExpense failed", "expense_id", expenseID, "error", err)
		return nil, err
	}

	if regenerate {
		if err := s.store.DeleteRecordsForExpense(ctx, expenseID); err != nil {
			return nil, err
		}
		if err := s.store.CreateSettlementRecords(ctx, deriveRecords(expense)); err != nil {
			slog.Error("UpdateExpense: record regeneration failed", "expense_id", expenseID, "error", err)
			return nil, err
		}
	}

	if _, err := s.balances.Recalculate(ctx, groupID); err != nil {
		return nil, err
	}
	return expense, nil
}

// DeleteExpense removes an expense and every record derived from it, then
// recalculates the group's balances. Only the expense creator may delete.
func (s *ExpenseService) DeleteExpense(ctx context.Context, groupID, expenseID, userID string) error {
	expense, err := s.expenseInGroup(ctx, groupID, expenseID)
	if err != nil {
		return err
	}
	if expense.CreatedBy != userID {
		return fmt.Errorf("user %s did not create expense %s: %w", userID, expenseID, ErrUnauthorized)
	}

	if err := s.store.DeleteRecordsForExpense(ctx, expenseID); err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return err
	}

	if _, err := s.balances.Recalculate(ctx, groupID); err != nil {
		return err
	}
	slog.Info("expense deleted", "group_id", groupID, "expense_id", expenseID)
	return nil
}

// CreateManualSettlement records an out-of-band payment as a single
// completed settlement record, modeled exactly like an expense-derived one.
func (s *ExpenseService) CreateManualSettlement(ctx context.Context, groupID string, input ManualSettlementInput, userID string) (*models.SettlementRecord, error) {
	group, err := requireMember(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, err
	}
	if input.PayerID == input.PayeeID {
		return nil, fmt.Errorf("payer and payee must differ: %w", ErrValidation)
	}
	if input.Amount < money.Epsilon {
		return nil, fmt.Errorf("settlement amount %.2f is not positive: %w", input.Amount, ErrValidation)
	}

	description := input.Description
	if description == "" {
		description = "Manual settlement"
	}
	record := &models.SettlementRecord{
		GroupID:     groupID,
		PayerID:     input.PayerID,
		PayeeID:     input.PayeeID,
		Amount:      input.Amount,
		Currency:    group.Currency,
		Status:      models.SettlementCompleted,
		Description: description,
	}
	if err := s.store.CreateSettlementRecords(ctx, []*models.SettlementRecord{record}); err != nil {
		slog.Error("CreateManualSettlement failed", "group_id", groupID, "error", err)
		return nil, err
	}

	if _, err := s.balances.Recalculate(ctx, groupID); err != nil {
		return nil, err
	}
	slog.Info("manual settlement created",
		"group_id", groupID,
		"record_id", record.ID,
		"amount", record.Amount,
	)
	return record, nil
}

// ListGroupSettlements returns a group's settlement records for a member,
// optionally filtered by status.
func (s *ExpenseService) ListGroupSettlements(ctx context.Context, groupID string, status models.SettlementStatus, userID string) ([]*models.SettlementRecord, error) {
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown settlement status %q: %w", status, ErrValidation)
	}
	return s.store.ListRecordsByGroup(ctx, groupID, status)
}

// UpdateSettlementStatus moves a record from pending to completed. The
// transition is one-way; a completed record never goes back. Completing a
// settlement does not remove it from the ledger — it keeps netting against
// the debt it discharges.
func (s *ExpenseService) UpdateSettlementStatus(ctx context.Context, groupID, recordID string, status models.SettlementStatus, userID string) (*models.SettlementRecord, error) {
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}
	record, err := s.recordInGroup(ctx, groupID, recordID)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("unknown settlement status %q: %w", status, ErrValidation)
	}
	if status == record.Status {
		return record, nil
	}
	if record.Status == models.SettlementCompleted {
		return nil, fmt.Errorf("settlement %s is already completed: %w", recordID, ErrValidation)
	}

	if err := s.store.UpdateRecordStatus(ctx, recordID, status); err != nil {
		return nil, err
	}
	record.Status = status

	if _, err := s.balances.Recalculate(ctx, groupID); err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteSettlement removes one record and recalculates the group's
// balances.
func (s *ExpenseService) DeleteSettlement(ctx context.Context, groupID, recordID, userID string) error {
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return err
	}
	if _, err := s.recordInGroup(ctx, groupID, recordID); err != nil {
		return err
	}
	if err := s.store.DeleteSettlementRecord(ctx, recordID); err != nil {
		return err
	}

	if _, err := s.balances.Recalculate(ctx, groupID); err != nil {
		return err
	}
	slog.Info("settlement deleted", "group_id", groupID, "record_id", recordID)
	return nil
}

func (s *ExpenseService) expenseInGroup(ctx context.Context, groupID, expenseID string) (*models.Expense, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
		}
		return nil, err
	}
	if expense.GroupID != groupID {
		return nil, fmt.Errorf("expense %s not in group %s: %w", expenseID, groupID, ErrNotFound)
	}
	return expense, nil
}

func (s *ExpenseService) recordInGroup(ctx context.Context, groupID, recordID string) (*models.SettlementRecord, error) {
	record, err := s.store.GetSettlementRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("settlement %s: %w", recordID, ErrNotFound)
		}
		return nil, err
	}
	if record.GroupID != groupID {
		return nil, fmt.Errorf("settlement %s not in group %s: %w", recordID, groupID, ErrNotFound)
	}
	return record, nil
}

// validateSplits checks the split invariant: at least one line, no negative
// shares, and the sum matching the expense total within the tolerance.
func validateSplits(splits []models.ExpenseSplit, amount float64) error {
	if amount < money.Epsilon {
		return fmt.Errorf("expense amount %.2f is not positive: %w", amount, ErrValidation)
	}
	if len(splits) == 0 {
		return fmt.Errorf("expense needs at least one split: %w", ErrValidation)
	}
	var sum float64
	for _, split := range splits {
		if split.Amount < 0 {
			return fmt.Errorf("split for %s is negative: %w", split.UserID, ErrValidation)
		}
		sum += split.Amount
	}
	if !money.Negligible(sum - amount) {
		return fmt.Errorf("splits sum to %.2f, expense total is %.2f: %w", sum, amount, ErrValidation)
	}
	return nil
}

// deriveRecords emits one settlement record per split whose user is not the
// payer. Shares below the negligible threshold are skipped; self-pay records
// are never created.
func deriveRecords(expense *models.Expense) []*models.SettlementRecord {
	var records []*models.SettlementRecord
	for _, split := range expense.Splits {
		if split.UserID == expense.PaidBy {
			continue
		}
		if split.Amount < money.Epsilon {
			continue
		}
		records = append(records, &models.SettlementRecord{
			GroupID:     expense.GroupID,
			ExpenseID:   expense.ID,
			PayerID:     split.UserID,
			PayeeID:     expense.PaidBy,
			Amount:      split.Amount,
			Currency:    expense.Currency,
			Status:      models.SettlementPending,
			Description: "Share for " + expense.Description,
		})
	}
	return records
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"splitledger/internal/models"
	"splitledger/internal/storage"
)

// CreateSettlementRecords persists a batch of records in one transaction so
// an expense's derived records land all-or-nothing.
func (s *SQLiteStore) CreateSettlementRecords(ctx context.Context, records []*models.SettlementRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, record := range records {
		if record.ID == "" {
			record.ID = uuid.New().String()
		}
		if record.CreatedAt == 0 {
			record.CreatedAt = now
		}

		var expenseID interface{}
		if record.ExpenseID != "" {
			expenseID = record.ExpenseID
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO settlement_records (id, group_id, expense_id, payer_id, payee_id, amount, currency, status, description, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, record.GroupID, expenseID, record.PayerID, record.PayeeID,
			record.Amount, record.Currency, string(record.Status), record.Description,
			record.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSettlementRecord retrieves a record by ID.
func (s *SQLiteStore) GetSettlementRecord(ctx context.Context, recordID string) (*models.SettlementRecord, error) {
	record := &models.SettlementRecord{}
	var expenseID sql.NullString
	var status string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, expense_id, payer_id, payee_id, amount, currency, status, description, created_at
		 FROM settlement_records WHERE id = ?`,
		recordID,
	).Scan(&record.ID, &record.GroupID, &expenseID, &record.PayerID, &record.PayeeID,
		&record.Amount, &record.Currency, &status, &record.Description, &record.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement record %s: %w", recordID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}

	if expenseID.Valid {
		record.ExpenseID = expenseID.String
	}
	record.Status = models.SettlementStatus(status)
	return record, nil
}

// ListRecordsByGroup returns a group's records, newest first. An empty
// status returns all records.
func (s *SQLiteStore) ListRecordsByGroup(ctx context.Context, groupID string, status models.SettlementStatus) ([]*models.SettlementRecord, error) {
	query := `SELECT id, group_id, expense_id, payer_id, payee_id, amount, currency, status, description, created_at
		 FROM settlement_records WHERE group_id = ?`
	args := []interface{}{groupID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement records: %w", err)
	}
	defer rows.Close()

	var records []*models.SettlementRecord
	for rows.Next() {
		record := &models.SettlementRecord{}
		var expenseID sql.NullString
		var st string
		if err := rows.Scan(&record.ID, &record.GroupID, &expenseID, &record.PayerID, &record.PayeeID,
			&record.Amount, &record.Currency, &st, &record.Description, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement record: %w", err)
		}
		if expenseID.Valid {
			record.ExpenseID = expenseID.String
		}
		record.Status = models.SettlementStatus(st)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement records: %w", err)
	}
	return records, nil
}

// DeleteRecordsForExpense removes every record derived from an expense.
func (s *SQLiteStore) DeleteRecordsForExpense(ctx context.Context, expenseID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM settlement_records WHERE expense_id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete records for expense: %w", err)
	}
	return nil
}

// UpdateRecordStatus sets a record's status.
func (s *SQLiteStore) UpdateRecordStatus(ctx context.Context, recordID string, status models.SettlementStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE settlement_records SET status = ? WHERE id = ?",
		string(status), recordID,
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("settlement record %s: %w", recordID, storage.ErrNotFound)
	}
	return nil
}

// DeleteSettlementRecord removes a record by ID.
func (s *SQLiteStore) DeleteSettlementRecord(ctx context.Context, recordID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM settlement_records WHERE id = ?", recordID)
	if err != nil {
		return fmt.Errorf("failed to delete settlement record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("settlement record %s: %w", recordID, storage.ErrNotFound)
	}
	return nil
}

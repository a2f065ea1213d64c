package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"splitledger/internal/models"
	"splitledger/internal/storage"
)

// GetGroupBalances retrieves the cached balances row for a group.
func (s *SQLiteStore) GetGroupBalances(ctx context.Context, groupID string) (*models.GroupBalances, error) {
	cache := &models.GroupBalances{GroupID: groupID}
	var encoded string

	err := s.db.QueryRowContext(ctx,
		"SELECT balances, version, updated_at FROM group_balances WHERE group_id = ?",
		groupID,
	).Scan(&encoded, &cache.Version, &cache.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("balances for group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group balances: %w", err)
	}

	if err := json.Unmarshal([]byte(encoded), &cache.Balances); err != nil {
		return nil, fmt.Errorf("failed to decode group balances: %w", err)
	}
	return cache, nil
}

// PutGroupBalances writes a group's cached balances with a compare-and-set
// on version. prevVersion zero means "no cache existed when I read"; a
// conflicting insert or update returns ErrStaleVersion so the caller can
// recompute from a fresh snapshot instead of clobbering newer data.
func (s *SQLiteStore) PutGroupBalances(ctx context.Context, groupID string, balances map[string]float64, prevVersion int64) (*models.GroupBalances, error) {
	if balances == nil {
		balances = map[string]float64{}
	}
	encoded, err := json.Marshal(balances)
	if err != nil {
		return nil, fmt.Errorf("failed to encode group balances: %w", err)
	}

	now := time.Now().Unix()
	next := prevVersion + 1

	if prevVersion == 0 {
		// INSERT only succeeds if no row exists; a concurrent writer that
		// inserted first wins.
		res, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_balances (group_id, balances, version, updated_at) VALUES (?, ?, ?, ?)",
			groupID, string(encoded), next, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert group balances: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check insert result: %w", err)
		}
		if affected == 0 {
			return nil, storage.ErrStaleVersion
		}
	} else {
		res, err := s.db.ExecContext(ctx,
			"UPDATE group_balances SET balances = ?, version = ?, updated_at = ? WHERE group_id = ? AND version = ?",
			string(encoded), next, now, groupID, prevVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update group balances: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check update result: %w", err)
		}
		if affected == 0 {
			return nil, storage.ErrStaleVersion
		}
	}

	return &models.GroupBalances{
		GroupID:   groupID,
		Balances:  balances,
		Version:   next,
		UpdatedAt: now,
	}, nil
}

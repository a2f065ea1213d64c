package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"splitledger/internal/metrics"
	"splitledger/internal/models"
	"splitledger/internal/money"
	"splitledger/internal/netting"
	"splitledger/internal/storage"
)

// Algorithm names accepted by ComputeSettlements. Advanced is the default.
const (
	AlgorithmNormal   = "normal"
	AlgorithmAdvanced = "advanced"
)

// maxRecalcAttempts bounds the retry loop when a compare-and-set cache write
// loses to a concurrent recalculation.
const maxRecalcAttempts = 3

// BalanceService owns the derived-balance side of the ledger: the netting
// algorithms over a group's record set, the versioned per-group balance
// cache, and the cross-group friend aggregation.
type BalanceService struct {
	store storage.Store

	// repair deduplicates concurrent read-repairs of the same group's
	// missing cache so a cold group triggers one recompute, not many.
	repair singleflight.Group
}

// NewBalanceService creates a BalanceService over the given store.
func NewBalanceService(store storage.Store) *BalanceService {
	return &BalanceService{store: store}
}

// ComputeSettlements runs the requested netting algorithm over all current
// settlement records of the group and returns the suggested payments.
// Unknown algorithm names fall through to advanced, mirroring the default.
func (s *BalanceService) ComputeSettlements(ctx context.Context, groupID, algorithm string) ([]models.OptimizedSettlement, error) {
	records, err := s.store.ListRecordsByGroup(ctx, groupID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	var transfers []netting.Transfer
	if algorithm == AlgorithmNormal {
		transfers = netting.Pairwise(toNettingRecords(records))
		metrics.OptimizerRuns.WithLabelValues(AlgorithmNormal).Inc()
	} else {
		transfers = netting.GreedyMatch(toNettingRecords(records))
		metrics.OptimizerRuns.WithLabelValues(AlgorithmAdvanced).Inc()
	}

	optimized := make([]models.OptimizedSettlement, len(transfers))
	for i, t := range transfers {
		optimized[i] = models.OptimizedSettlement{
			FromUserID: t.FromUserID,
			ToUserID:   t.ToUserID,
			Amount:     t.Amount,
		}
	}
	return optimized, nil
}

// Recalculate recomputes a group's balances from the complete current record
// set and atomically replaces the cache entry. The write carries the version
// read before recomputing; if a concurrent recalculation got there first the
// write is rejected and the whole recompute runs again on a fresh snapshot,
// so a slow recompute over an old snapshot can never clobber a newer cache.
func (s *BalanceService) Recalculate(ctx context.Context, groupID string) (map[string]float64, error) {
	start := time.Now()
	defer func() {
		metrics.RecalculationDuration.Observe(time.Since(start).Seconds())
	}()
	metrics.Recalculations.Inc()

	for attempt := 0; attempt < maxRecalcAttempts; attempt++ {
		var prevVersion int64
		cached, err := s.store.GetGroupBalances(ctx, groupID)
		switch {
		case err == nil:
			prevVersion = cached.Version
		case errors.Is(err, storage.ErrNotFound):
			prevVersion = 0
		default:
			return nil, fmt.Errorf("failed to read cached balances: %w", err)
		}

		records, err := s.store.ListRecordsByGroup(ctx, groupID, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load records: %w", err)
		}

		transfers := netting.GreedyMatch(toNettingRecords(records))
		balances := foldTransfers(transfers)

		stored, err := s.store.PutGroupBalances(ctx, groupID, balances, prevVersion)
		if errors.Is(err, storage.ErrStaleVersion) {
			metrics.StaleCacheWrites.Inc()
			slog.Debug("stale balance write, retrying", "group_id", groupID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store balances: %w", err)
		}

		slog.Debug("recalculated group balances",
			"group_id", groupID,
			"users", len(stored.Balances),
			"version", stored.Version,
		)
		return stored.Balances, nil
	}
	return nil, fmt.Errorf("group %s: balance write lost %d version races", groupID, maxRecalcAttempts)
}

// GetCached returns the cached balances for a group, recalculating first
// when the cache is missing (read-repair). Concurrent misses for the same
// group share a single recalculation.
func (s *BalanceService) GetCached(ctx context.Context, groupID string) (map[string]float64, error) {
	cached, err := s.store.GetGroupBalances(ctx, groupID)
	if err == nil {
		metrics.CacheReads.WithLabelValues("hit").Inc()
		return cached.Balances, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to read cached balances: %w", err)
	}

	metrics.CacheReads.WithLabelValues("miss").Inc()
	result, err, _ := s.repair.Do(groupID, func() (interface{}, error) {
		return s.Recalculate(ctx, groupID)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]float64), nil
}

// UserGroupBalance summarizes one user's raw position in a group from the
// record set directly, without netting.
func (s *BalanceService) UserGroupBalance(ctx context.Context, groupID, targetUserID, userID string) (*models.UserGroupBalance, error) {
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}

	records, err := s.store.ListRecordsByGroup(ctx, groupID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	balance := &models.UserGroupBalance{UserID: targetUserID}
	for _, r := range records {
		if r.PayerID == targetUserID {
			balance.TotalOwed += r.Amount
		}
		if r.PayeeID == targetUserID {
			balance.TotalOwedTo += r.Amount
		}
	}
	balance.TotalOwed = money.Round2(balance.TotalOwed)
	balance.TotalOwedTo = money.Round2(balance.TotalOwedTo)
	balance.NetBalance = money.Round2(balance.TotalOwedTo - balance.TotalOwed)
	return balance, nil
}

// groupEnumerationCap bounds how many groups the cross-group aggregation
// will walk for one user.
const groupEnumerationCap = 500

// FriendsBalanceSummary aggregates a user's net position against every
// counterparty across all groups they belong to. Each group gets a fresh
// advanced netting run — deliberately uncached, one sequential run per
// group.
func (s *BalanceService) FriendsBalanceSummary(ctx context.Context, userID string) (*models.FriendsSummary, error) {
	groups, err := s.store.ListGroupsForUser(ctx, userID, groupEnumerationCap)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	type friendAgg struct {
		balance   float64
		breakdown []models.FriendGroupEntry
	}
	friends := make(map[string]*friendAgg)

	for _, group := range groups {
		records, err := s.store.ListRecordsByGroup(ctx, group.ID, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load records for group %s: %w", group.ID, err)
		}
		transfers := netting.GreedyMatch(toNettingRecords(records))
		metrics.OptimizerRuns.WithLabelValues(AlgorithmAdvanced).Inc()

		for _, t := range transfers {
			switch userID {
			case t.FromUserID:
				// User owes the friend in this group.
				agg := friends[t.ToUserID]
				if agg == nil {
					agg = &friendAgg{}
					friends[t.ToUserID] = agg
				}
				agg.balance -= t.Amount
				agg.breakdown = append(agg.breakdown, models.FriendGroupEntry{
					GroupID:   group.ID,
					GroupName: group.Name,
					Balance:   -t.Amount,
					OwesYou:   false,
				})
			case t.ToUserID:
				// Friend owes the user in this group.
				agg := friends[t.FromUserID]
				if agg == nil {
					agg = &friendAgg{}
					friends[t.FromUserID] = agg
				}
				agg.balance += t.Amount
				agg.breakdown = append(agg.breakdown, models.FriendGroupEntry{
					GroupID:   group.ID,
					GroupName: group.Name,
					Balance:   t.Amount,
					OwesYou:   true,
				})
			}
		}
	}

	summary := &models.FriendsSummary{
		Summary: models.BalanceSummary{ActiveGroups: len(groups)},
	}
	for friendID, agg := range friends {
		if money.Negligible(agg.balance) {
			continue
		}
		summary.FriendBalances = append(summary.FriendBalances, models.FriendBalance{
			UserID:     friendID,
			NetBalance: money.Round2(agg.balance),
			OwesYou:    agg.balance > 0,
			Breakdown:  agg.breakdown,
		})
		if agg.balance > 0 {
			summary.Summary.TotalOwedToYou += agg.balance
		} else {
			summary.Summary.TotalYouOwe += -agg.balance
		}
	}
	sort.Slice(summary.FriendBalances, func(i, j int) bool {
		return summary.FriendBalances[i].UserID < summary.FriendBalances[j].UserID
	})

	summary.Summary.TotalOwedToYou = money.Round2(summary.Summary.TotalOwedToYou)
	summary.Summary.TotalYouOwe = money.Round2(summary.Summary.TotalYouOwe)
	summary.Summary.NetBalance = money.Round2(summary.Summary.TotalOwedToYou - summary.Summary.TotalYouOwe)
	summary.Summary.FriendCount = len(summary.FriendBalances)
	return summary, nil
}

// toNettingRecords projects stored records onto the minimal view the
// algorithms take. Status is intentionally not consulted.
func toNettingRecords(records []*models.SettlementRecord) []netting.Record {
	out := make([]netting.Record, len(records))
	for i, r := range records {
		out[i] = netting.Record{
			PayerID: r.PayerID,
			PayeeID: r.PayeeID,
			Amount:  r.Amount,
		}
	}
	return out
}

// foldTransfers reduces suggested payments to signed per-user balances:
// the payer of a transfer owes (negative), the receiver is owed (positive).
func foldTransfers(transfers []netting.Transfer) map[string]float64 {
	balances := make(map[string]float64)
	for _, t := range transfers {
		balances[t.FromUserID] -= t.Amount
		balances[t.ToUserID] += t.Amount
	}
	return balances
}

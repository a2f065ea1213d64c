// Package service exposes the settlement core to collaborators: expense and
// settlement mutation hooks, the two netting algorithms, the versioned
// balance cache and the cross-group friend aggregation. Transport, sessions
// and pagination live outside this module and call in through these types.
package service

import (
	"context"
	"errors"
	"fmt"

	"splitledger/internal/models"
	"splitledger/internal/storage"
)

// requireMember loads a group and checks that userID is a member (or the
// creator). Missing group maps to ErrNotFound, non-membership to
// ErrUnauthorized.
func requireMember(ctx context.Context, store storage.Store, groupID, userID string) (*models.Group, error) {
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if !group.HasMember(userID) {
		return nil, fmt.Errorf("user %s is not a member of group %s: %w", userID, groupID, ErrUnauthorized)
	}
	return group, nil
}

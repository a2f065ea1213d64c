package models

// GroupBalances is the cached result of a full balance recalculation for one
// group. It is derived state: regenerable at any time from the group's
// settlement records, never a source of truth.
type GroupBalances struct {
	// GroupID is the group these balances belong to.
	GroupID string

	// Balances maps userID to signed net balance: positive = owed money,
	// negative = owes money.
	Balances map[string]float64

	// Version increases by one on every successful write. Writers must
	// present the version they read; stale writes are rejected.
	Version int64

	// UpdatedAt is the Unix timestamp of the last recalculation.
	UpdatedAt int64
}

// UserGroupBalance summarizes one user's raw position inside a single group.
type UserGroupBalance struct {
	UserID string

	// TotalOwed is the sum of record amounts where the user is the debtor.
	TotalOwed float64

	// TotalOwedTo is the sum of record amounts where the user is the
	// creditor.
	TotalOwedTo float64

	// NetBalance is TotalOwedTo - TotalOwed: positive = owed money.
	NetBalance float64
}

// FriendGroupEntry is one group's contribution to an aggregated friend
// balance.
type FriendGroupEntry struct {
	GroupID   string
	GroupName string

	// Balance is the signed contribution from this group: positive means
	// the friend owes the user here, negative means the user owes the
	// friend.
	Balance float64

	// OwesYou is true when Balance is positive.
	OwesYou bool
}

// FriendBalance is a user's aggregated position against one counterparty
// across every shared group.
type FriendBalance struct {
	UserID string

	// NetBalance is the signed aggregate across all shared groups,
	// rounded to two decimals.
	NetBalance float64

	// OwesYou is true when the friend owes the user overall.
	OwesYou bool

	// Breakdown lists the per-group contributions that produced
	// NetBalance.
	Breakdown []FriendGroupEntry
}

// BalanceSummary totals a user's position across all friends.
type BalanceSummary struct {
	TotalOwedToYou float64
	TotalYouOwe    float64
	NetBalance     float64
	FriendCount    int
	ActiveGroups   int
}

// FriendsSummary is the full cross-group aggregation result for one user.
type FriendsSummary struct {
	FriendBalances []FriendBalance
	Summary        BalanceSummary
}

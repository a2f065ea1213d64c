// Package models defines the core domain models for Splitledger.
//
// The central entity is the SettlementRecord: one persisted bilateral
// obligation, derived either from an expense split or from a manual
// out-of-band payment. Everything else the system computes — pairwise
// netting, the greedy minimum-transaction matching, the cached per-group
// balances and the cross-group friend summary — is derived from the record
// set and can be regenerated from it at any time.
//
// Orientation convention, used everywhere: on a SettlementRecord the PayerID
// is the debtor (the person who owes and will pay) and the PayeeID is the
// creditor (the person who is owed). A positive net balance means a user is
// owed money; negative means they owe.
//
// Participants are referenced by opaque user ID strings; user profiles,
// authentication and group administration live outside this module.
package models

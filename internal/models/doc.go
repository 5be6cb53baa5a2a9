// Package models defines the records exchanged between the settlement engine
// and its persistence collaborator.
//
// # Records
//
//   - Stokvel: a savings pool with its type, currency and rule settings
//   - Member: a participant with a fixed rotation order
//   - Contribution: a member's payment for one period, Unverified until decided
//   - Payout: a disbursement to one member within a numbered cycle
//   - Adjustment: a member's fairness correction once a cycle completes
//   - Cycle: the per-cycle version row used for compare-and-swap writes
//
// # Money
//
// Every amount is a decimal.Decimal carried at two decimal places. The
// stokvel's Currency is an opaque tag; no conversion ever happens.
//
// # Cycles
//
// There is no implicit "current cycle". Payouts, adjustments and
// contributions carry their CycleNumber explicitly and callers pass the
// cycle they are operating on.
package models

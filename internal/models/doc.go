// Package models defines the domain types shared by the splitsync client core.
//
// # Money
//
// All monetary amounts are integer minor units (Cents). The remote ledger
// service exchanges floating-point currency amounts on the wire; conversion in
// both directions goes through shopspring/decimal so that parsing "74.99" can
// never drift to 7498 cents. Balance, settlement, and projection arithmetic is
// exact integer math with no epsilon thresholds.
//
// # Expense kinds
//
// A ledger entry is one of three kinds:
//   - expense: PaidBy covered the amount, SplitBetween owe their shares
//   - transfer: PaidBy handed money directly to TransferTo
//   - income: PaidBy received money owed to SplitBetween in equal shares
//
// The kind decides which fields are meaningful. Use the NewExpense,
// NewTransfer, and NewIncome constructors; Validate rejects any entry whose
// field shape does not match its kind.
//
// # Local ids
//
// Records created while offline carry temporary ids with the "local-" prefix
// until the server assigns canonical ids during sync reconciliation. IsLocalID
// recognizes them; the presentation layer disables edit and delete on such
// records.
package models

package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format of expense dates on the wire.
const DateLayout = "2006-01-02"

// ExpenseKind tags which variant a ledger entry is. The kind decides which
// fields of Expense are meaningful; use the constructors and Validate rather
// than assembling entries by hand.
type ExpenseKind string

const (
	// KindExpense: PaidBy covered Amount, SplitBetween owe equal shares.
	KindExpense ExpenseKind = "expense"
	// KindTransfer: PaidBy handed Amount directly to TransferTo.
	KindTransfer ExpenseKind = "transfer"
	// KindIncome: PaidBy received Amount owed to SplitBetween in equal shares.
	KindIncome ExpenseKind = "income"
)

// Expense is one ledger entry. SplitBetween is set for expense/income entries,
// TransferTo for transfer entries; Validate enforces the shape.
type Expense struct {
	ID           string      `json:"id"`
	GroupID      string      `json:"group_id,omitempty"`
	Description  string      `json:"description"`
	Amount       Cents       `json:"amount"`
	PaidBy       string      `json:"paid_by"`
	Kind         ExpenseKind `json:"expense_type"`
	SplitBetween []string    `json:"split_between,omitempty"`
	TransferTo   string      `json:"transfer_to,omitempty"`
	Date         string      `json:"expense_date"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewExpense builds a shared expense paid by one member and split equally.
// The date defaults to today.
func NewExpense(description string, amount Cents, paidBy string, splitBetween []string) Expense {
	return Expense{
		Description:  description,
		Amount:       amount,
		PaidBy:       paidBy,
		Kind:         KindExpense,
		SplitBetween: splitBetween,
		Date:         time.Now().Format(DateLayout),
	}
}

// NewTransfer builds a direct payment from one member to another.
func NewTransfer(description string, amount Cents, from, to string) Expense {
	return Expense{
		Description: description,
		Amount:      amount,
		PaidBy:      from,
		Kind:        KindTransfer,
		TransferTo:  to,
		Date:        time.Now().Format(DateLayout),
	}
}

// NewIncome builds an external income received by one member on behalf of the
// split members.
func NewIncome(description string, amount Cents, receivedBy string, splitBetween []string) Expense {
	return Expense{
		Description:  description,
		Amount:       amount,
		PaidBy:       receivedBy,
		Kind:         KindIncome,
		SplitBetween: splitBetween,
		Date:         time.Now().Format(DateLayout),
	}
}

// Validate checks that the entry's fields match its kind.
func (e *Expense) Validate() error {
	if e.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %s", e.Amount)
	}
	if e.PaidBy == "" {
		return fmt.Errorf("paid_by is required")
	}
	switch e.Kind {
	case KindExpense, KindIncome:
		if len(e.SplitBetween) == 0 {
			return fmt.Errorf("%s entry needs at least one split member", e.Kind)
		}
		if e.TransferTo != "" {
			return fmt.Errorf("%s entry must not set transfer_to", e.Kind)
		}
	case KindTransfer:
		if e.TransferTo == "" {
			return fmt.Errorf("transfer entry needs transfer_to")
		}
		if len(e.SplitBetween) != 0 {
			return fmt.Errorf("transfer entry must not set split_between")
		}
		if e.TransferTo == e.PaidBy {
			return fmt.Errorf("transfer cannot pay a member back to themselves")
		}
	default:
		return fmt.Errorf("unknown expense kind %q", e.Kind)
	}
	return nil
}

// Pending reports whether the entry still carries a temporary local id.
func (e *Expense) Pending() bool {
	return IsLocalID(e.ID)
}

package models

import "encoding/json"

// ActionKind identifies which remote write a queued mutation replays.
type ActionKind string

const (
	ActionCreateExpense ActionKind = "createExpense"
	ActionUpdateExpense ActionKind = "updateExpense"
	ActionDeleteExpense ActionKind = "deleteExpense"
	ActionAddMember     ActionKind = "addMember"
	ActionUpdatePayment ActionKind = "updatePayment"
)

// Valid reports whether k is one of the replayable kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionCreateExpense, ActionUpdateExpense, ActionDeleteExpense,
		ActionAddMember, ActionUpdatePayment:
		return true
	}
	return false
}

// Mutation is one queued, not-yet-confirmed write. Entries are immutable once
// created; they are removed only after the remote confirms the replay. The
// queue itself treats Payload as opaque bytes; interpretation happens during
// replay.
type Mutation struct {
	// ID is locally unique and monotonic; replay order is ascending ID.
	ID        uint64          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	GroupID   string          `json:"group_id"`
	AuthToken string          `json:"auth_token"`
	Kind      ActionKind      `json:"action_kind"`
	Payload   json.RawMessage `json:"payload"`
}

// ExpensePayload carries createExpense and updateExpense bodies. ExpenseID is
// empty for creates. LocalID records the temporary id used by the optimistic
// projection so consumers can correlate the record after reconciliation
// replaces it.
type ExpensePayload struct {
	ExpenseID    string      `json:"expense_id,omitempty"`
	LocalID      string      `json:"local_id,omitempty"`
	Description  string      `json:"description"`
	Amount       Cents       `json:"amount"`
	PaidBy       string      `json:"paid_by"`
	Kind         ExpenseKind `json:"expense_type"`
	SplitBetween []string    `json:"split_between,omitempty"`
	TransferTo   string      `json:"transfer_to,omitempty"`
	Date         string      `json:"expense_date"`
}

// DeleteExpensePayload carries deleteExpense bodies.
type DeleteExpensePayload struct {
	ExpenseID string `json:"expense_id"`
}

// AddMemberPayload carries addMember bodies.
type AddMemberPayload struct {
	Name    string `json:"name"`
	LocalID string `json:"local_id,omitempty"`
}

// UpdatePaymentPayload carries updatePayment bodies.
type UpdatePaymentPayload struct {
	MemberID    string `json:"member_id"`
	PayPalEmail string `json:"paypal_email,omitempty"`
	IBAN        string `json:"iban,omitempty"`
}

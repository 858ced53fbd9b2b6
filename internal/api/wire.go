package api

import (
	"time"

	"github.com/mmynk/splitsync/internal/models"
)

// Wire types mirror the server's JSON exactly. Amounts cross the wire as
// floating-point major units and are converted to integer cents at this
// boundary; nothing past this package handles floats.

type wireMember struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PayPalEmail string `json:"paypal_email"`
	IBAN        string `json:"iban"`
}

type wireGroup struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Members   []wireMember `json:"members"`
	CreatedAt time.Time    `json:"created_at"`
}

type wireExpense struct {
	ID           string    `json:"id"`
	GroupID      string    `json:"group_id"`
	Description  string    `json:"description"`
	Amount       float64   `json:"amount"`
	PaidBy       string    `json:"paid_by"`
	SplitBetween []string  `json:"split_between"`
	ExpenseType  string    `json:"expense_type"`
	TransferTo   string    `json:"transfer_to"`
	ExpenseDate  string    `json:"expense_date"`
	CreatedAt    time.Time `json:"created_at"`
}

type wireBalance struct {
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name"`
	Balance  float64 `json:"balance"`
}

type groupCreatedResponse struct {
	Group wireGroup `json:"group"`
	Token string    `json:"token"`
}

type createGroupRequest struct {
	Name        string   `json:"name"`
	MemberNames []string `json:"member_names"`
}

type addMemberRequest struct {
	Name string `json:"name"`
}

type updatePaymentRequest struct {
	PayPalEmail string `json:"paypal_email,omitempty"`
	IBAN        string `json:"iban,omitempty"`
}

type expenseRequest struct {
	Description  string   `json:"description"`
	Amount       float64  `json:"amount"`
	PaidBy       string   `json:"paid_by"`
	SplitBetween []string `json:"split_between"`
	ExpenseType  string   `json:"expense_type"`
	TransferTo   string   `json:"transfer_to,omitempty"`
	ExpenseDate  string   `json:"expense_date,omitempty"`
}

func memberFromWire(w wireMember) models.Member {
	return models.Member{
		ID:          w.ID,
		Name:        w.Name,
		PayPalEmail: w.PayPalEmail,
		IBAN:        w.IBAN,
	}
}

func groupFromWire(w wireGroup) models.Group {
	members := make([]models.Member, 0, len(w.Members))
	for _, m := range w.Members {
		members = append(members, memberFromWire(m))
	}
	return models.Group{
		ID:        w.ID,
		Name:      w.Name,
		Members:   members,
		CreatedAt: w.CreatedAt,
	}
}

func expenseFromWire(w wireExpense) models.Expense {
	return models.Expense{
		ID:           w.ID,
		GroupID:      w.GroupID,
		Description:  w.Description,
		Amount:       models.CentsFromFloat(w.Amount),
		PaidBy:       w.PaidBy,
		Kind:         models.ExpenseKind(w.ExpenseType),
		SplitBetween: w.SplitBetween,
		TransferTo:   w.TransferTo,
		Date:         w.ExpenseDate,
		CreatedAt:    w.CreatedAt,
	}
}

func balanceFromWire(w wireBalance) models.Balance {
	return models.Balance{
		MemberID:   w.UserID,
		MemberName: w.UserName,
		Net:        models.CentsFromFloat(w.Balance),
	}
}

func expenseToWire(e models.Expense) expenseRequest {
	return expenseRequest{
		Description:  e.Description,
		Amount:       e.Amount.Float64(),
		PaidBy:       e.PaidBy,
		SplitBetween: e.SplitBetween,
		ExpenseType:  string(e.Kind),
		TransferTo:   e.TransferTo,
		ExpenseDate:  e.Date,
	}
}

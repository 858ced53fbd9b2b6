package cache

import (
	"github.com/mmynk/splitsync/internal/models"
)

// Optimistic projection: while offline, local writes are applied directly to
// the cached snapshot so reads reflect them immediately. Balances are
// recomputed with the same rules the server applies, in integer cents, so
// the projected snapshot stays coherent until the server's authoritative
// state replaces it.

// ApplyExpenseCreate appends e and recomputes balances.
func (s *Snapshot) ApplyExpenseCreate(e models.Expense) {
	s.Expenses = append(s.Expenses, e)
	s.recomputeBalances()
}

// ApplyExpenseUpdate replaces the expense with e's id. It reports whether a
// matching expense existed.
func (s *Snapshot) ApplyExpenseUpdate(e models.Expense) bool {
	for i := range s.Expenses {
		if s.Expenses[i].ID == e.ID {
			s.Expenses[i] = e
			s.recomputeBalances()
			return true
		}
	}
	return false
}

// ApplyExpenseDelete removes the expense with the given id. It reports
// whether a matching expense existed.
func (s *Snapshot) ApplyExpenseDelete(expenseID string) bool {
	for i := range s.Expenses {
		if s.Expenses[i].ID == expenseID {
			s.Expenses = append(s.Expenses[:i], s.Expenses[i+1:]...)
			s.recomputeBalances()
			return true
		}
	}
	return false
}

// ApplyMemberAdd appends m to the group and recomputes balances, giving the
// new member a zero entry.
func (s *Snapshot) ApplyMemberAdd(m models.Member) {
	s.Group.Members = append(s.Group.Members, m)
	s.recomputeBalances()
}

// ApplyPaymentUpdate sets the payment details of the given member. Balances
// are unaffected. It reports whether the member exists.
func (s *Snapshot) ApplyPaymentUpdate(memberID, paypalEmail, iban string) bool {
	for i := range s.Group.Members {
		if s.Group.Members[i].ID == memberID {
			s.Group.Members[i].PayPalEmail = paypalEmail
			s.Group.Members[i].IBAN = iban
			return true
		}
	}
	return false
}

// recomputeBalances rebuilds the balance list from the member and expense
// lists. Per expense: the payer is credited the full amount and every split
// member is debited a share. Transfers move the amount from receiver to
// sender (the sender settled a debt). Income is an expense with the signs
// flipped. Shares are split largest-remainder so they always sum to the
// exact amount.
func (s *Snapshot) recomputeBalances() {
	net := make(map[string]models.Cents, len(s.Group.Members))
	for _, m := range s.Group.Members {
		net[m.ID] = 0
	}

	for _, e := range s.Expenses {
		switch e.Kind {
		case models.KindTransfer:
			net[e.PaidBy] += e.Amount
			net[e.TransferTo] -= e.Amount
		case models.KindIncome:
			net[e.PaidBy] -= e.Amount
			for i, share := range splitShares(e.Amount, len(e.SplitBetween)) {
				net[e.SplitBetween[i]] += share
			}
		default:
			net[e.PaidBy] += e.Amount
			for i, share := range splitShares(e.Amount, len(e.SplitBetween)) {
				net[e.SplitBetween[i]] -= share
			}
		}
	}

	balances := make([]models.Balance, 0, len(s.Group.Members))
	for _, m := range s.Group.Members {
		balances = append(balances, models.Balance{
			MemberID:   m.ID,
			MemberName: m.Name,
			Net:        net[m.ID],
		})
	}
	s.Balances = balances
}

// splitShares divides total into n shares that sum exactly to total. The
// first total%n shares carry one extra cent, so the allocation follows
// split order deterministically.
func splitShares(total models.Cents, n int) []models.Cents {
	if n <= 0 {
		return nil
	}
	base := total / models.Cents(n)
	rem := total % models.Cents(n)
	shares := make([]models.Cents, n)
	for i := range shares {
		shares[i] = base
		if models.Cents(i) < rem {
			shares[i]++
		}
	}
	return shares
}

package models

// Balance is one member's aggregate position in a group. Positive = owed
// money, negative = owes money. Balances are computed authoritatively by the
// remote service; the client recomputes them locally only to keep cached
// snapshots coherent with optimistic writes.
type Balance struct {
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
	Net        Cents  `json:"net"`
}

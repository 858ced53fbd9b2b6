package models

// Settlement is a recommended payment from one member to another. Amount is
// always positive and never exceeds the smaller of the two parties' absolute
// balances at the time it is issued. Settlements are derived by the planner
// and never persisted.
type Settlement struct {
	FromID   string `json:"from_member_id"`
	FromName string `json:"from_member_name"`
	ToID     string `json:"to_member_id"`
	ToName   string `json:"to_member_name"`
	Amount   Cents  `json:"amount"`
}

package models

import "time"

// Member is one person in a group's ledger.
type Member struct {
	// ID is the server-assigned identifier, or a temporary "local-" id for a
	// member added while offline.
	ID string `json:"id"`

	// Name is the display name used for cross-ledger identity matching.
	Name string `json:"name"`

	// PayPalEmail and IBAN are optional payment hand-offs shown next to
	// settlement suggestions.
	PayPalEmail string `json:"paypal_email,omitempty"`
	IBAN        string `json:"iban,omitempty"`
}

// Group is the metadata of one independent ledger. Each group has its own
// member list and its own bearer token; members are never shared across
// groups, which is why cross-ledger transfers need identity matching.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// Member returns the member with the given id, if present.
func (g *Group) Member(id string) (Member, bool) {
	for _, m := range g.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

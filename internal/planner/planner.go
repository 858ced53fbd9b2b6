// Package planner turns net balances into transfer plans and resolves member
// identities across independent groups. Both parts are pure: no storage, no
// network, and every invocation is independent, so callers may share one
// planner across goroutines freely.
package planner

import (
	"math/bits"
	"sort"

	"github.com/mmynk/splitsync/internal/models"
)

// maxPartitionMembers bounds the subset-partitioning search. Beyond this the
// O(3^n) submask sweep is impractical and everyone settles as one group.
const maxPartitionMembers = 16

// Plan computes a minimal ordered transfer list that settles all balances.
//
// Minimizing transfer count is NP-hard in general; greedily pairing the
// largest debtor with the largest creditor is not always optimal because a
// zero-sum subset of members can settle among themselves with fewer
// transfers. For up to maxPartitionMembers active members, Plan first splits
// the group into the maximum number of independent zero-sum subsets via a
// bitmask dynamic program, then settles each subset greedily.
//
// The result is deterministic: the same balances in the same order always
// produce the same settlements in the same order. Balances that are already
// settled (zero after rounding to cents) are skipped; a lone leftover that
// cannot pair with anyone is dropped rather than reported.
func Plan(balances []models.Balance) []models.Settlement {
	active := make([]models.Balance, 0, len(balances))
	for _, b := range balances {
		if b.Net != 0 {
			active = append(active, b)
		}
	}
	if len(active) == 0 {
		return nil
	}

	var settlements []models.Settlement
	for _, group := range partition(active) {
		settlements = append(settlements, settleGreedy(group)...)
	}
	return settlements
}

// partition splits active members into the maximum number of independent
// zero-sum groups. Input order is preserved within each group. When the
// members do not sum to zero, or there are too many for the subset sweep,
// everyone stays in a single group.
func partition(active []models.Balance) [][]models.Balance {
	n := len(active)
	if n > maxPartitionMembers {
		return [][]models.Balance{active}
	}

	full := 1<<n - 1
	sums := make([]models.Cents, 1<<n)
	for mask := 1; mask <= full; mask++ {
		low := mask & -mask
		sums[mask] = sums[mask^low] + active[bits.TrailingZeros(uint(mask))].Net
	}
	if sums[full] != 0 {
		return [][]models.Balance{active}
	}

	// dp[mask] = max count of disjoint zero-sum subsets exactly covering
	// mask, or -1 if mask cannot be covered.
	dp := make([]int, 1<<n)
	for mask := 1; mask <= full; mask++ {
		dp[mask] = -1
		for s := mask; s > 0; s = (s - 1) & mask {
			if sums[s] != 0 {
				continue
			}
			if rest := dp[mask^s]; rest >= 0 && rest+1 > dp[mask] {
				dp[mask] = rest + 1
			}
		}
	}

	var groups [][]models.Balance
	remaining := full
	for remaining != 0 {
		found := false
		for s := remaining; s > 0; s = (s - 1) & remaining {
			if sums[s] != 0 || dp[remaining^s] != dp[remaining]-1 {
				continue
			}
			groups = append(groups, membersOf(active, s))
			remaining ^= s
			found = true
			break
		}
		if !found {
			groups = append(groups, membersOf(active, remaining))
			break
		}
	}
	return groups
}

// membersOf collects the members selected by mask in input order.
func membersOf(active []models.Balance, mask int) []models.Balance {
	group := make([]models.Balance, 0, bits.OnesCount(uint(mask)))
	for i := 0; i < len(active); i++ {
		if mask&(1<<i) != 0 {
			group = append(group, active[i])
		}
	}
	return group
}

// party is one side of the greedy matching, tracking the remaining amount
// still owed or expected.
type party struct {
	order  int
	id     string
	name   string
	amount models.Cents
}

// settleGreedy matches debtors against creditors largest-first within one
// group. Ties break on original input order so the output is stable.
func settleGreedy(group []models.Balance) []models.Settlement {
	var debtors, creditors []party
	for i, b := range group {
		switch {
		case b.Net < 0:
			debtors = append(debtors, party{order: i, id: b.MemberID, name: b.MemberName, amount: -b.Net})
		case b.Net > 0:
			creditors = append(creditors, party{order: i, id: b.MemberID, name: b.MemberName, amount: b.Net})
		}
	}
	byAmountDesc := func(parties []party) func(i, j int) bool {
		return func(i, j int) bool {
			if parties[i].amount != parties[j].amount {
				return parties[i].amount > parties[j].amount
			}
			return parties[i].order < parties[j].order
		}
	}
	sort.Slice(debtors, byAmountDesc(debtors))
	sort.Slice(creditors, byAmountDesc(creditors))

	var settlements []models.Settlement
	di, ci := 0, 0
	for di < len(debtors) && ci < len(creditors) {
		debtor, creditor := &debtors[di], &creditors[ci]
		amount := debtor.amount
		if creditor.amount < amount {
			amount = creditor.amount
		}
		if amount > 0 {
			settlements = append(settlements, models.Settlement{
				FromID:   debtor.id,
				FromName: debtor.name,
				ToID:     creditor.id,
				ToName:   creditor.name,
				Amount:   amount,
			})
		}
		debtor.amount -= amount
		creditor.amount -= amount
		if debtor.amount == 0 {
			di++
		}
		if creditor.amount == 0 {
			ci++
		}
	}
	return settlements
}

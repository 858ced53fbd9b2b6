package planner

import (
	"reflect"
	"testing"

	"github.com/mmynk/splitsync/internal/models"
)

func balance(id, name string, net models.Cents) models.Balance {
	return models.Balance{MemberID: id, MemberName: name, Net: net}
}

// applyPlan plays the settlements back onto the balances and returns the
// residual per member.
func applyPlan(balances []models.Balance, settlements []models.Settlement) map[string]models.Cents {
	residual := make(map[string]models.Cents, len(balances))
	for _, b := range balances {
		residual[b.MemberID] = b.Net
	}
	for _, s := range settlements {
		residual[s.FromID] += s.Amount
		residual[s.ToID] -= s.Amount
	}
	return residual
}

func assertSettled(t *testing.T, balances []models.Balance, settlements []models.Settlement) {
	t.Helper()
	for id, residual := range applyPlan(balances, settlements) {
		if residual != 0 {
			t.Errorf("Member %s left with residual %d cents", id, residual)
		}
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name         string
		balances     []models.Balance
		validateFunc func(t *testing.T, settlements []models.Settlement)
	}{
		{
			name:     "no balances yields no settlements",
			balances: nil,
			validateFunc: func(t *testing.T, settlements []models.Settlement) {
				if len(settlements) != 0 {
					t.Errorf("Expected no settlements, got %d", len(settlements))
				}
			},
		},
		{
			name: "all settled yields no settlements",
			balances: []models.Balance{
				balance("a", "Alice", 0),
				balance("b", "Bob", 0),
			},
			validateFunc: func(t *testing.T, settlements []models.Settlement) {
				if len(settlements) != 0 {
					t.Errorf("Expected no settlements, got %d", len(settlements))
				}
			},
		},
		{
			name: "single debt settles with one transfer",
			balances: []models.Balance{
				balance("a", "Alice", -1000),
				balance("b", "Bob", 1000),
			},
			validateFunc: func(t *testing.T, settlements []models.Settlement) {
				if len(settlements) != 1 {
					t.Fatalf("Expected 1 settlement, got %d", len(settlements))
				}
				s := settlements[0]
				if s.FromID != "a" || s.ToID != "b" || s.Amount != 1000 {
					t.Errorf("Unexpected settlement: %+v", s)
				}
			},
		},
		{
			name: "largest creditor is paid first",
			balances: []models.Balance{
				balance("a", "Alice", -3000),
				balance("b", "Bob", 1000),
				balance("c", "Cara", 2000),
			},
			validateFunc: func(t *testing.T, settlements []models.Settlement) {
				want := []models.Settlement{
					{FromID: "a", FromName: "Alice", ToID: "c", ToName: "Cara", Amount: 2000},
					{FromID: "a", FromName: "Alice", ToID: "b", ToName: "Bob", Amount: 1000},
				}
				if !reflect.DeepEqual(settlements, want) {
					t.Errorf("Got %+v, want %+v", settlements, want)
				}
			},
		},
		{
			name: "independent zero-sum subsets settle separately",
			// One greedy pass over all six needs 5 transfers; splitting
			// into two zero-sum triples needs only 4.
			balances: []models.Balance{
				balance("a", "Alice", 1000),
				balance("b", "Bob", 1000),
				balance("c", "Cara", -600),
				balance("d", "Dan", -600),
				balance("e", "Eve", -400),
				balance("f", "Fay", -400),
			},
			validateFunc: func(t *testing.T, settlements []models.Settlement) {
				if len(settlements) != 4 {
					t.Errorf("Expected 4 settlements, got %d", len(settlements))
				}
			},
		},
		{
			name: "lone unmatched balance is dropped",
			balances: []models.Balance{
				balance("a", "Alice", 500),
			},
			validateFunc: func(t *testing.T, settlements []models.Settlement) {
				if len(settlements) != 0 {
					t.Errorf("Expected no settlements for a lone balance, got %d", len(settlements))
				}
			},
		},
		{
			name: "equal debtors pay in input order",
			balances: []models.Balance{
				balance("a", "Alice", -500),
				balance("b", "Bob", -500),
				balance("c", "Cara", 1000),
			},
			validateFunc: func(t *testing.T, settlements []models.Settlement) {
				if len(settlements) != 2 {
					t.Fatalf("Expected 2 settlements, got %d", len(settlements))
				}
				if settlements[0].FromID != "a" || settlements[1].FromID != "b" {
					t.Errorf("Tie should break on input order, got %s then %s",
						settlements[0].FromID, settlements[1].FromID)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settlements := Plan(tt.balances)
			assertSettled(t, tt.balances, settlements)
			tt.validateFunc(t, settlements)
		})
	}
}

func TestPlanNeverWorseThanGreedy(t *testing.T) {
	// Partitioning may only remove transfers relative to one greedy pass
	// over the whole group.
	balances := []models.Balance{
		balance("a", "Alice", 1000),
		balance("b", "Bob", 1000),
		balance("c", "Cara", -600),
		balance("d", "Dan", -600),
		balance("e", "Eve", -400),
		balance("f", "Fay", -400),
	}

	planned := Plan(balances)
	greedy := settleGreedy(balances)
	if len(planned) > len(greedy) {
		t.Errorf("Plan emitted %d settlements, greedy only %d", len(planned), len(greedy))
	}
	if len(greedy) != 5 {
		t.Errorf("Greedy baseline changed: expected 5 settlements, got %d", len(greedy))
	}
	if len(planned) != 4 {
		t.Errorf("Partitioned plan: expected 4 settlements, got %d", len(planned))
	}
}

func TestPlanLargeGroupFallsBackToGreedy(t *testing.T) {
	// Seventeen active members exceed the partitioning bound; the plan must
	// still settle everyone.
	var balances []models.Balance
	for i := 0; i < 16; i++ {
		balances = append(balances, balance(string(rune('a'+i)), "Member", 100))
	}
	balances = append(balances, balance("q", "Payer", -1600))

	settlements := Plan(balances)
	assertSettled(t, balances, settlements)
	if len(settlements) != 16 {
		t.Errorf("Expected 16 settlements, got %d", len(settlements))
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	balances := []models.Balance{
		balance("a", "Alice", 1000),
		balance("b", "Bob", 1000),
		balance("c", "Cara", -600),
		balance("d", "Dan", -600),
		balance("e", "Eve", -400),
		balance("f", "Fay", -400),
	}

	first := Plan(balances)
	for i := 0; i < 10; i++ {
		if next := Plan(balances); !reflect.DeepEqual(first, next) {
			t.Fatalf("Run %d differed:\nfirst: %+v\nnext:  %+v", i, first, next)
		}
	}
}

func TestPlanDoesNotMutateInput(t *testing.T) {
	balances := []models.Balance{
		balance("a", "Alice", -3000),
		balance("b", "Bob", 3000),
	}
	original := make([]models.Balance, len(balances))
	copy(original, balances)

	Plan(balances)
	if !reflect.DeepEqual(balances, original) {
		t.Errorf("Plan mutated its input: %+v", balances)
	}
}

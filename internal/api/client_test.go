package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmynk/splitsync/internal/models"
)

func TestClientCreateGroup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/groups" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req createGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Name != "Ski Trip" || len(req.MemberNames) != 2 {
			t.Errorf("Unexpected request body: %+v", req)
		}

		json.NewEncoder(w).Encode(groupCreatedResponse{
			Group: wireGroup{
				ID:   "g1",
				Name: req.Name,
				Members: []wireMember{
					{ID: "m1", Name: req.MemberNames[0]},
					{ID: "m2", Name: req.MemberNames[1]},
				},
			},
			Token: "signed-token",
		})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	group, token, err := client.CreateGroup(context.Background(), "Ski Trip", []string{"Alice", "Bob"})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.ID != "g1" {
		t.Errorf("Group id: got %s, want g1", group.ID)
	}
	if len(group.Members) != 2 {
		t.Errorf("Expected 2 members, got %d", len(group.Members))
	}
	if token != "signed-token" {
		t.Errorf("Token: got %s", token)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer my-token" {
			t.Errorf("Authorization header: got %q", got)
		}
		json.NewEncoder(w).Encode(wireGroup{ID: "g1", Name: "Trip"})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	if _, err := client.GetGroup(context.Background(), "my-token"); err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
}

func TestClientAmountConversion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req expenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Amount != 12.5 {
			t.Errorf("Wire amount: got %v, want 12.5", req.Amount)
		}

		json.NewEncoder(w).Encode(wireExpense{
			ID:           "e1",
			GroupID:      "g1",
			Description:  req.Description,
			Amount:       req.Amount,
			PaidBy:       req.PaidBy,
			SplitBetween: req.SplitBetween,
			ExpenseType:  req.ExpenseType,
			ExpenseDate:  "2026-08-25",
		})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	created, err := client.CreateExpense(context.Background(), "token", models.Expense{
		Description:  "Lunch",
		Amount:       1250,
		PaidBy:       "m1",
		Kind:         models.KindExpense,
		SplitBetween: []string{"m1", "m2"},
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if created.Amount != 1250 {
		t.Errorf("Round-tripped amount: got %d cents, want 1250", created.Amount)
	}
	if created.ID != "e1" {
		t.Errorf("Expected server id e1, got %s", created.ID)
	}
}

func TestClientBalanceConversion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]wireBalance{
			{UserID: "m1", UserName: "Alice", Balance: -30.0},
			{UserID: "m2", UserName: "Bob", Balance: 10.0},
			{UserID: "m3", UserName: "Cara", Balance: 20.001},
		})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	balances, err := client.GetBalances(context.Background(), "token")
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if len(balances) != 3 {
		t.Fatalf("Expected 3 balances, got %d", len(balances))
	}
	if balances[0].Net != -3000 {
		t.Errorf("First balance: got %d cents, want -3000", balances[0].Net)
	}
	if balances[2].Net != 2000 {
		t.Errorf("Sub-cent noise should round away: got %d cents, want 2000", balances[2].Net)
	}
}

func TestClientDeleteExpense(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	if err := client.DeleteExpense(context.Background(), "token", "e1"); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
}

func TestClientFailureClassification(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantRetrying bool
	}{
		{name: "500 is retryable", status: http.StatusInternalServerError, wantRetrying: true},
		{name: "503 is retryable", status: http.StatusServiceUnavailable, wantRetrying: true},
		{name: "429 is retryable", status: http.StatusTooManyRequests, wantRetrying: true},
		{name: "404 is a rejection", status: http.StatusNotFound, body: `{"error":"expense not found"}`, wantRetrying: false},
		{name: "400 is a rejection", status: http.StatusBadRequest, wantRetrying: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					w.Write([]byte(tt.body))
				}
			}))
			defer server.Close()

			client := New(server.URL, nil)
			err := client.DeleteExpense(context.Background(), "token", "e1")
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			if tt.wantRetrying {
				if !errors.Is(err, ErrUnavailable) {
					t.Errorf("Expected ErrUnavailable, got %v", err)
				}
				return
			}
			rejected, ok := IsRejected(err)
			if !ok {
				t.Fatalf("Expected RejectedError, got %v", err)
			}
			if rejected.Status != tt.status {
				t.Errorf("Rejection status: got %d, want %d", rejected.Status, tt.status)
			}
			if tt.body != "" && rejected.Message != "expense not found" {
				t.Errorf("Rejection message: got %q", rejected.Message)
			}
		})
	}
}

func TestClientTransportErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := New(server.URL, nil)
	_, err := client.GetGroup(context.Background(), "token")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for transport failure, got %v", err)
	}
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}

	server.Close()
	if err := client.Health(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable after shutdown, got %v", err)
	}
}

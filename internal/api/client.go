// Package api is the typed client for the remote ledger service. It owns
// the wire format, the bearer-token plumbing, and the failure taxonomy that
// the sync engine depends on: ErrUnavailable for outages worth retrying,
// RejectedError for requests the server refused.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmynk/splitsync/internal/models"
)

const defaultTimeout = 15 * time.Second

// Client talks to one ledger service instance. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client for the service at baseURL (scheme and host, no
// trailing slash required). A nil logger falls back to slog.Default().
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// SetHTTPClient replaces the underlying HTTP client. Call before first use.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
}

// CreateGroup registers a new group with the given member names and returns
// the created group plus its bearer token. This is the only write that
// cannot be queued offline: without a group there is no token to replay
// under.
func (c *Client) CreateGroup(ctx context.Context, name string, memberNames []string) (*models.Group, string, error) {
	req := createGroupRequest{Name: name, MemberNames: memberNames}
	var resp groupCreatedResponse
	if err := c.do(ctx, "create group", http.MethodPost, "/api/groups", "", req, &resp); err != nil {
		return nil, "", err
	}
	group := groupFromWire(resp.Group)
	return &group, resp.Token, nil
}

// GetGroup fetches the group the token belongs to.
func (c *Client) GetGroup(ctx context.Context, token string) (*models.Group, error) {
	var resp wireGroup
	if err := c.do(ctx, "get group", http.MethodGet, "/api/groups/current", token, nil, &resp); err != nil {
		return nil, err
	}
	group := groupFromWire(resp)
	return &group, nil
}

// AddMember adds a member by name and returns the updated group.
func (c *Client) AddMember(ctx context.Context, token, name string) (*models.Group, error) {
	var resp wireGroup
	if err := c.do(ctx, "add member", http.MethodPost, "/api/groups/current/members", token, addMemberRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	group := groupFromWire(resp)
	return &group, nil
}

// UpdatePayment sets a member's payment details and returns the updated
// member. Empty fields clear the stored value.
func (c *Client) UpdatePayment(ctx context.Context, token, memberID, paypalEmail, iban string) (*models.Member, error) {
	path := fmt.Sprintf("/api/groups/current/members/%s/payment", memberID)
	req := updatePaymentRequest{PayPalEmail: paypalEmail, IBAN: iban}
	var resp wireMember
	if err := c.do(ctx, "update payment", http.MethodPut, path, token, req, &resp); err != nil {
		return nil, err
	}
	member := memberFromWire(resp)
	return &member, nil
}

// ListExpenses fetches all expenses of the token's group.
func (c *Client) ListExpenses(ctx context.Context, token string) ([]models.Expense, error) {
	var resp []wireExpense
	if err := c.do(ctx, "list expenses", http.MethodGet, "/api/groups/current/expenses", token, nil, &resp); err != nil {
		return nil, err
	}
	expenses := make([]models.Expense, 0, len(resp))
	for _, w := range resp {
		expenses = append(expenses, expenseFromWire(w))
	}
	return expenses, nil
}

// CreateExpense records a new expense and returns it with its server id.
func (c *Client) CreateExpense(ctx context.Context, token string, e models.Expense) (*models.Expense, error) {
	var resp wireExpense
	if err := c.do(ctx, "create expense", http.MethodPost, "/api/groups/current/expenses", token, expenseToWire(e), &resp); err != nil {
		return nil, err
	}
	created := expenseFromWire(resp)
	return &created, nil
}

// UpdateExpense replaces the expense with e.ID and returns the result.
func (c *Client) UpdateExpense(ctx context.Context, token string, e models.Expense) (*models.Expense, error) {
	path := fmt.Sprintf("/api/groups/current/expenses/%s", e.ID)
	var resp wireExpense
	if err := c.do(ctx, "update expense", http.MethodPut, path, token, expenseToWire(e), &resp); err != nil {
		return nil, err
	}
	updated := expenseFromWire(resp)
	return &updated, nil
}

// DeleteExpense removes an expense.
func (c *Client) DeleteExpense(ctx context.Context, token, expenseID string) error {
	path := fmt.Sprintf("/api/groups/current/expenses/%s", expenseID)
	return c.do(ctx, "delete expense", http.MethodDelete, path, token, nil, nil)
}

// GetBalances fetches per-member net balances for the token's group.
func (c *Client) GetBalances(ctx context.Context, token string) ([]models.Balance, error) {
	var resp []wireBalance
	if err := c.do(ctx, "get balances", http.MethodGet, "/api/groups/current/balances", token, nil, &resp); err != nil {
		return nil, err
	}
	balances := make([]models.Balance, 0, len(resp))
	for _, w := range resp {
		balances = append(balances, balanceFromWire(w))
	}
	return balances, nil
}

// Health reports whether the service answers at all. Any response counts as
// reachable; only transport failures mean offline.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// do runs one request/response cycle: marshal the body, attach the bearer
// token, classify the response, decode into out when provided.
func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) error {
	start := time.Now()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			"op", op,
			"error", err,
		)
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := readErrorMessage(resp.Body)
		err := classifyStatus(op, resp.StatusCode, message)
		c.logger.Debug("request not accepted",
			"op", op,
			"status", resp.StatusCode,
			"duration", time.Since(start),
		)
		return err
	}

	c.logger.Debug("request completed",
		"op", op,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// readErrorMessage extracts a human-readable message from an error body,
// accepting either {"error": "..."} / {"message": "..."} JSON or plain text.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(data))
}

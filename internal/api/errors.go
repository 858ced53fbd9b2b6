package api

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks failures worth retrying later: transport errors,
// 5xx responses, and 429. The sync engine treats these as "offline" and
// keeps the mutation queued.
var ErrUnavailable = errors.New("service unavailable")

// RejectedError is an explicit 4xx refusal from the server. Retrying the
// same request will not help; the caller must surface it.
type RejectedError struct {
	Op      string
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s rejected with status %d: %s", e.Op, e.Status, e.Message)
}

// IsRejected reports whether err is an explicit server rejection and, if so,
// returns it.
func IsRejected(err error) (*RejectedError, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}

// classifyStatus converts a non-2xx response into the failure taxonomy.
// 429 is grouped with 5xx because the server is telling us to come back
// later, not that the request is wrong.
func classifyStatus(op string, status int, message string) error {
	if status >= 500 || status == 429 {
		return fmt.Errorf("%s failed with status %d: %w", op, status, ErrUnavailable)
	}
	return &RejectedError{Op: op, Status: status, Message: message}
}

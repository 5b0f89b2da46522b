package client

import "fmt"

// APIError is the typed, non-2xx result of one OVH API call. Callers switch
// on the concrete type (AuthError, NotFoundError, ...), not on Status, so
// that C5's retry/terminal decision table reads naturally.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ovh api: %d %s: %s", e.Status, e.Code, e.Message)
}

// AuthError wraps 401/403: fatal, the operator must fix the account's keys.
type AuthError struct{ *APIError }

// NotFoundError wraps 404: plan, cart, or item does not exist.
type NotFoundError struct{ *APIError }

// ConflictError wraps 409: retry next tick, nothing to fix.
type ConflictError struct{ *APIError }

// ServerError wraps 5xx: transient, retry next tick.
type ServerError struct{ *APIError }

// RateLimitError wraps 429. Callers back off to
// max(retryInterval, 2*previous) capped at MaxRetryBackoff seconds.
type RateLimitError struct {
	*APIError
	RetryAfterSeconds int
}

// NotAvailableError is C3's signal that OVH rejected an AddItem call for
// stock reasons (a race with another buyer), distinct from a hard 4xx.
type NotAvailableError struct {
	PlanCode   string
	Datacenter string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("plan %s not available in %s", e.PlanCode, e.Datacenter)
}

// PaymentFailedError is raised after a successful checkout when autoPay was
// requested but OVH reports the payment did not go through. The order still
// exists; C5 treats this as a successful acquisition with a recorded note.
type PaymentFailedError struct {
	OrderID string
	Reason  string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment failed for order %s: %s", e.OrderID, e.Reason)
}

// classify turns an HTTP status and decoded OVH error body into the typed
// error the rest of the engine switches on.
func classify(status int, code, message string) error {
	base := &APIError{Status: status, Code: code, Message: message}
	switch {
	case status == 401 || status == 403:
		return &AuthError{base}
	case status == 404:
		return &NotFoundError{base}
	case status == 409:
		return &ConflictError{base}
	case status == 429:
		return &RateLimitError{APIError: base}
	case status >= 500:
		return &ServerError{base}
	default:
		return base
	}
}

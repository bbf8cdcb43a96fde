package paystack

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StatusSuccess is the only transaction status that means money moved.
const StatusSuccess = "success"

// inProgress are statuses a transaction can still leave for success.
var inProgress = map[string]bool{
	"pending":    true,
	"ongoing":    true,
	"processing": true,
	"queued":     true,
}

// InProgress reports whether status is not final yet.
func InProgress(status string) bool {
	return inProgress[status]
}

// ErrTimeout is returned when the gateway does not answer within the
// configured timeout.
var ErrTimeout = errors.New("paystack: request timed out")

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("paystack: gateway unavailable")

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: status %d: %s", e.StatusCode, e.Message)
}

// InitializeRequest opens a hosted-payment session.
type InitializeRequest struct {
	Email       string          `json:"email"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Reference   string          `json:"reference"`
	CallbackURL string          `json:"callback_url,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// InitializeResponse is the hosted page handle.
type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Transaction is the gateway's authoritative view of a payment.
type Transaction struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	GatewayResponse string          `json:"gateway_response"`
	PaidAt          string          `json:"paid_at"`
	Metadata        json.RawMessage `json:"metadata"`
}

// Succeeded reports whether the transaction reached the success state.
func (t *Transaction) Succeeded() bool {
	return t.Status == StatusSuccess
}

// envelope is the wrapper every Paystack response uses.
type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

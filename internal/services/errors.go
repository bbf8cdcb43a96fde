package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("payment reference already used")
	ErrRateLimited          = errors.New("too many requests")
	ErrGateway              = errors.New("payment could not be initialized")
	ErrVerification         = errors.New("payment could not be verified")
	ErrGatewayTimeout       = errors.New("payment provider timed out")
	ErrPaymentNotSuccessful = errors.New("payment was not successful")
	ErrAmountMismatch       = errors.New("payment amount does not match order total")
	ErrOrderPersistence     = errors.New("payment received but order could not be recorded")
	ErrNotFound             = errors.New("not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidTransition    = errors.New("invalid checkout transition")
	ErrEmptyCart            = errors.New("cart is empty")

	// ErrPaymentPending is a non-success the gateway may still settle.
	ErrPaymentPending = fmt.Errorf("%w: still in progress", ErrPaymentNotSuccessful)
)

// ValidationError carries the per-field messages of a rejected input.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationError(message string, fields map[string]string) error {
	return &ValidationError{Message: message, Fields: fields}
}

// publicMessages are safe to show to shoppers. Anything not listed here
// is reported as a generic failure.
var publicMessages = []struct {
	err     error
	message string
}{
	{ErrValidation, "The order details are incomplete or invalid."},
	{ErrConflict, "This payment reference has already been used. Please start a new payment."},
	{ErrRateLimited, "Too many payment attempts. Please wait a moment and try again."},
	{ErrGateway, "Payment could not be initialized. Please try again."},
	{ErrVerification, "Payment could not be verified. Please try again."},
	{ErrGatewayTimeout, "The payment provider took too long to respond. Please try again."},
	{ErrPaymentPending, "Your payment is still being processed. Please check again shortly."},
	{ErrPaymentNotSuccessful, "Your payment was not completed. Please try again."},
	{ErrAmountMismatch, "The payment could not be matched to your order. Please contact support."},
	{ErrOrderPersistence, "Your payment was received but your order could not be recorded. Our team has been alerted."},
	{ErrNotFound, "The requested resource was not found."},
	{ErrInvalidCredentials, "Invalid email or password."},
	{ErrEmailTaken, "This email is already registered."},
	{ErrInvalidTransition, "This checkout step is not available right now."},
}

// PublicMessage returns a shopper-facing description of err that never
// includes upstream or storage details.
func PublicMessage(err error) string {
	for _, m := range publicMessages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}
	return "Something went wrong. Please try again."
}

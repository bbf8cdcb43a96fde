// Package checkout models the two-step checkout wizard as a strictly
// linear state machine: shipping -> payment -> confirmation, with a
// failed state that can only go back to payment under a new reference.
package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"herbstore/internal/models"
)

// State is a checkout step.
type State string

const (
	StateShipping     State = "shipping"
	StatePayment      State = "payment"
	StateConfirmation State = "confirmation"
	StateFailed       State = "failed"
)

var (
	ErrInvalidTransition = errors.New("invalid checkout transition")
	ErrReferenceReused   = errors.New("payment reference already used by this checkout")
	ErrReferenceMismatch = errors.New("payment reference does not belong to this checkout")
)

// MissingFieldsError lists the required fields left blank.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Flow is one shopper's progress through checkout.
type Flow struct {
	SessionID      string                 `json:"session_id"`
	State          State                  `json:"state"`
	Customer       models.CustomerContact `json:"customer"`
	Shipping       models.ShippingDetails `json:"shipping"`
	Reference      string                 `json:"reference,omitempty"`
	UsedReferences []string               `json:"used_references,omitempty"`
	OrderID        string                 `json:"order_id,omitempty"`
	FailureReason  string                 `json:"failure_reason,omitempty"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// New starts a checkout at the shipping step.
func New(sessionID string) *Flow {
	return &Flow{SessionID: sessionID, State: StateShipping}
}

// SubmitShipping records contact and address details and moves to payment.
// Details may be corrected while still in payment, before a reference is open.
func (f *Flow) SubmitShipping(customer models.CustomerContact, shipping models.ShippingDetails) error {
	if f.State != StateShipping && !(f.State == StatePayment && f.Reference == "") {
		return fmt.Errorf("%w: cannot submit shipping details in state %s", ErrInvalidTransition, f.State)
	}
	if missing := missingFields(customer, shipping); len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	f.Customer = customer
	f.Shipping = shipping
	return f.moveTo(StatePayment)
}

// BeginPayment attaches a fresh reference to the payment step.
func (f *Flow) BeginPayment(reference string) error {
	if f.State != StatePayment {
		return fmt.Errorf("%w: cannot start payment in state %s", ErrInvalidTransition, f.State)
	}
	for _, used := range f.UsedReferences {
		if used == reference {
			return ErrReferenceReused
		}
	}
	f.Reference = reference
	f.UsedReferences = append(f.UsedReferences, reference)
	return f.moveTo(StatePayment)
}

// Confirm completes checkout once reference has been reconciled into orderID.
// A failed flow can still be confirmed by a late success on the reference
// that failed, as long as the shopper has not retried.
func (f *Flow) Confirm(reference, orderID string) error {
	if (f.State != StatePayment && f.State != StateFailed) || f.Reference == "" {
		return fmt.Errorf("%w: cannot confirm in state %s", ErrInvalidTransition, f.State)
	}
	if reference != f.Reference {
		return ErrReferenceMismatch
	}
	f.OrderID = orderID
	f.FailureReason = ""
	return f.moveTo(StateConfirmation)
}

// Fail records a failed or abandoned payment for reference.
func (f *Flow) Fail(reference, reason string) error {
	if f.State != StatePayment || f.Reference == "" {
		return fmt.Errorf("%w: cannot fail in state %s", ErrInvalidTransition, f.State)
	}
	if reference != f.Reference {
		return ErrReferenceMismatch
	}
	f.FailureReason = reason
	return f.moveTo(StateFailed)
}

// Retry leaves the failed state. The old reference stays burnt; the next
// BeginPayment must bring a new one.
func (f *Flow) Retry() error {
	if f.State != StateFailed {
		return fmt.Errorf("%w: cannot retry in state %s", ErrInvalidTransition, f.State)
	}
	f.Reference = ""
	f.FailureReason = ""
	return f.moveTo(StatePayment)
}

// Done reports whether the flow reached confirmation.
func (f *Flow) Done() bool {
	return f.State == StateConfirmation
}

var transitions = map[State][]State{
	StateShipping:     {StatePayment},
	StatePayment:      {StatePayment, StateConfirmation, StateFailed},
	StateFailed:       {StatePayment, StateConfirmation},
	StateConfirmation: {},
}

func (f *Flow) moveTo(next State) error {
	for _, allowed := range transitions[f.State] {
		if allowed == next {
			f.State = next
			f.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.State, next)
}

func missingFields(customer models.CustomerContact, shipping models.ShippingDetails) []string {
	required := map[string]string{
		"first_name": customer.FirstName,
		"last_name":  customer.LastName,
		"email":      customer.Email,
		"phone":      customer.Phone,
		"address":    shipping.Address,
		"city":       shipping.City,
		"state":      shipping.State,
	}
	var missing []string
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"herbstore/internal/cart"
	"herbstore/internal/checkout"
	"herbstore/internal/models"
)

// CheckoutService drives a shopper's checkout flow from cart to order.
type CheckoutService struct {
	flows    checkout.Store
	carts    cart.Store
	payments *PaymentService
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(flows checkout.Store, carts cart.Store, payments *PaymentService) *CheckoutService {
	return &CheckoutService{flows: flows, carts: carts, payments: payments}
}

// GetFlow returns the session's checkout flow.
func (s *CheckoutService) GetFlow(ctx context.Context, sessionID string) (*checkout.Flow, error) {
	return s.flows.Get(ctx, sessionID)
}

// SubmitShipping records contact and address details. A confirmed flow is
// finished, so new details start a new checkout.
func (s *CheckoutService) SubmitShipping(ctx context.Context, sessionID string, customer models.CustomerContact, shipping models.ShippingDetails) (*checkout.Flow, error) {
	flow, err := s.flows.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if flow.Done() {
		flow = checkout.New(sessionID)
	}
	if err := flow.SubmitShipping(customer, shipping); err != nil {
		return nil, flowError(err)
	}
	if err := s.flows.Save(ctx, flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// Pay freezes the cart into a draft under a brand new reference and
// opens a gateway session for it.
func (s *CheckoutService) Pay(ctx context.Context, sessionID, userID string) (*InitializeResult, error) {
	flow, err := s.flows.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, validationError(ErrEmptyCart.Error(), nil)
	}

	reference := NewReference()
	if err := flow.BeginPayment(reference); err != nil {
		return nil, flowError(err)
	}
	if err := s.flows.Save(ctx, flow); err != nil {
		return nil, err
	}

	draft := models.OrderDraft{
		Customer:    flow.Customer,
		Shipping:    flow.Shipping,
		Items:       c.LineItems(),
		TotalAmount: c.Subtotal(),
		Reference:   reference,
		UserID:      userID,
	}
	result, err := s.payments.Initialize(ctx, draft)
	if err != nil {
		s.markFailed(ctx, flow, reference, err)
		return nil, err
	}
	return result, nil
}

// Verify reconciles reference and advances the flow when it belongs to
// this session: confirmation and an empty cart on success, the failed
// state on a definitive payment failure.
func (s *CheckoutService) Verify(ctx context.Context, sessionID, reference string) (*ReconcileResult, error) {
	result, err := s.payments.Reconcile(ctx, reference)
	if sessionID == "" {
		return result, err
	}

	flow, flowErr := s.flows.Get(ctx, sessionID)
	if flowErr != nil || flow.Reference != reference {
		return result, err
	}

	if err != nil {
		if definitiveFailure(err) {
			s.markFailed(ctx, flow, reference, err)
		}
		return nil, err
	}

	if flow.Done() {
		return result, nil
	}
	if confirmErr := flow.Confirm(reference, result.Order.ID); confirmErr != nil {
		log.Printf("Order %s recorded but checkout for session %s not confirmed: %v", result.Order.ID, sessionID, confirmErr)
		return result, nil
	}
	if saveErr := s.flows.Save(ctx, flow); saveErr != nil {
		log.Printf("Failed to save confirmed checkout for session %s: %v", sessionID, saveErr)
	}
	if clearErr := s.carts.Delete(ctx, sessionID); clearErr != nil {
		log.Printf("Failed to clear cart for session %s after order %s: %v", sessionID, result.Order.ID, clearErr)
	}
	return result, nil
}

// Retry moves a failed checkout back to the payment step.
func (s *CheckoutService) Retry(ctx context.Context, sessionID string) (*checkout.Flow, error) {
	flow, err := s.flows.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := flow.Retry(); err != nil {
		return nil, flowError(err)
	}
	if err := s.flows.Save(ctx, flow); err != nil {
		return nil, err
	}
	return flow, nil
}

func (s *CheckoutService) markFailed(ctx context.Context, flow *checkout.Flow, reference string, cause error) {
	if err := flow.Fail(reference, PublicMessage(cause)); err != nil {
		return
	}
	if err := s.flows.Save(ctx, flow); err != nil {
		log.Printf("Failed to save failed checkout for session %s: %v", flow.SessionID, err)
	}
}

// definitiveFailure reports whether err means the reference can never
// settle. A payment the gateway still has in progress is not one.
func definitiveFailure(err error) bool {
	if errors.Is(err, ErrPaymentPending) {
		return false
	}
	return errors.Is(err, ErrPaymentNotSuccessful) || errors.Is(err, ErrAmountMismatch)
}

func flowError(err error) error {
	var missing *checkout.MissingFieldsError
	switch {
	case errors.As(err, &missing):
		fields := make(map[string]string, len(missing.Fields))
		for _, f := range missing.Fields {
			fields[f] = "required"
		}
		return validationError(err.Error(), fields)
	case errors.Is(err, checkout.ErrInvalidTransition), errors.Is(err, checkout.ErrReferenceReused):
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return err
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"herbstore/internal/config"
	"herbstore/internal/models"
	"herbstore/internal/repositories"
	"herbstore/internal/validation"
	"herbstore/pkg/paystack"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Gateway is the remote payment provider.
type Gateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// ReferenceRegistry remembers every reference handed to the gateway.
type ReferenceRegistry interface {
	// Claim reserves reference and reports false if it was already taken.
	Claim(ctx context.Context, reference string) (bool, error)
}

// EventPublisher announces newly recorded orders.
type EventPublisher interface {
	PublishOrderCompleted(event models.OrderCompletedEvent) error
}

// InitializeResult is what the shopper needs to reach the hosted page.
type InitializeResult struct {
	RedirectURL string `json:"redirect_url"`
	AccessCode  string `json:"access_code"`
	Reference   string `json:"reference"`
}

// ReconcileResult is the order recorded for a verified payment. Created is
// false when an earlier call had already recorded it.
type ReconcileResult struct {
	Order   *models.Order
	Created bool
}

// PaymentService opens gateway sessions and turns verified payments into orders.
type PaymentService struct {
	gateway    Gateway
	orders     repositories.OrderRepository
	references ReferenceRegistry
	publisher  EventPublisher
	cfg        config.PaymentConfig
	validate   *validator.Validate
}

// NewPaymentService creates a new PaymentService. publisher may be nil.
func NewPaymentService(gateway Gateway, orders repositories.OrderRepository, references ReferenceRegistry, publisher EventPublisher, cfg config.PaymentConfig) *PaymentService {
	return &PaymentService{
		gateway:    gateway,
		orders:     orders,
		references: references,
		publisher:  publisher,
		cfg:        cfg,
		validate:   validation.New(),
	}
}

// Initialize validates draft and asks the gateway for a hosted payment page.
// Nothing is written locally apart from the reference claim, so a failed or
// abandoned attempt leaves no order behind.
func (s *PaymentService) Initialize(ctx context.Context, draft models.OrderDraft) (*InitializeResult, error) {
	minor, err := s.checkDraft(draft)
	if err != nil {
		return nil, err
	}

	if draft.Reference == "" {
		draft.Reference = NewReference()
	}

	if _, err := s.orders.GetByReference(draft.Reference); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrConflict, draft.Reference)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check payment reference: %w", err)
	}

	claimed, err := s.references.Claim(ctx, draft.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve payment reference: %w", err)
	}
	if !claimed {
		return nil, fmt.Errorf("%w: %s", ErrConflict, draft.Reference)
	}

	metadata, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment metadata: %w", err)
	}

	resp, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       draft.Customer.Email,
		Amount:      minor,
		Currency:    s.cfg.Currency.String(),
		Reference:   draft.Reference,
		CallbackURL: s.cfg.CallbackURL,
		Metadata:    metadata,
	})
	if err != nil {
		log.Printf("Payment initialization failed for reference %s: %v", draft.Reference, err)
		return nil, s.translateGatewayError(err, ErrGateway)
	}

	return &InitializeResult{
		RedirectURL: resp.AuthorizationURL,
		AccessCode:  resp.AccessCode,
		Reference:   draft.Reference,
	}, nil
}

// checkDraft runs every local check and returns the charge in minor units.
func (s *PaymentService) checkDraft(draft models.OrderDraft) (int64, error) {
	if err := s.validate.Struct(draft); err != nil {
		return 0, validationError("order draft is incomplete", validation.FieldErrors(err))
	}
	if s.cfg.MaxItems > 0 && len(draft.Items) > s.cfg.MaxItems {
		return 0, validationError(fmt.Sprintf("at most %d line items per order", s.cfg.MaxItems), nil)
	}
	if !s.cfg.MaxTotal.IsZero() && draft.TotalAmount.GreaterThan(s.cfg.MaxTotal) {
		return 0, validationError(fmt.Sprintf("total_amount exceeds %s", s.cfg.MaxTotal), nil)
	}
	if !draft.ComputedTotal().Equal(draft.TotalAmount) {
		return 0, validationError("total_amount does not match line items", nil)
	}

	minor := ToMinorUnits(draft.TotalAmount, s.cfg.Currency)
	if minor < s.cfg.MinMinor || minor > s.cfg.MaxMinor {
		return 0, validationError(fmt.Sprintf("amount must be between %d and %d minor units", s.cfg.MinMinor, s.cfg.MaxMinor), nil)
	}
	return minor, nil
}

// Reconcile confirms a payment with the gateway and records its order
// exactly once. Both the redirect callback and the client poll end up here.
func (s *PaymentService) Reconcile(ctx context.Context, reference string) (*ReconcileResult, error) {
	if !validation.ValidReference(reference) {
		return nil, validationError("invalid payment reference", map[string]string{"reference": "malformed"})
	}

	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		if transactionNotFound(err) {
			log.Printf("Gateway has no transaction for reference %s: %v", reference, err)
			return nil, fmt.Errorf("%w: transaction not found", ErrPaymentNotSuccessful)
		}
		log.Printf("Payment verification failed for reference %s: %v", reference, err)
		return nil, s.translateGatewayError(err, ErrVerification)
	}

	if !tx.Succeeded() {
		if paystack.InProgress(tx.Status) {
			return nil, fmt.Errorf("%w: gateway status %q", ErrPaymentPending, tx.Status)
		}
		return nil, fmt.Errorf("%w: gateway status %q", ErrPaymentNotSuccessful, tx.Status)
	}
	if tx.Reference != "" && tx.Reference != reference {
		log.Printf("AMOUNT_MISMATCH reference=%s gateway_reference=%s", reference, tx.Reference)
		return nil, fmt.Errorf("%w: reference mismatch", ErrAmountMismatch)
	}

	draft, err := decodeDraft(tx.Metadata)
	if err != nil {
		log.Printf("PAID_BUT_UNRECORDED reference=%s amount=%d: unreadable metadata: %v", reference, tx.Amount, err)
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}

	if existing, err := s.orders.GetByReference(reference); err == nil {
		return &ReconcileResult{Order: existing, Created: false}, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		log.Printf("PAID_BUT_UNRECORDED reference=%s amount=%d: lookup failed: %v", reference, tx.Amount, err)
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}

	expected := ToMinorUnits(draft.TotalAmount, s.cfg.Currency)
	if tx.Amount != expected || !draft.ComputedTotal().Equal(draft.TotalAmount) ||
		(tx.Currency != "" && !strings.EqualFold(tx.Currency, s.cfg.Currency.String())) {
		log.Printf("AMOUNT_MISMATCH reference=%s expected=%d %s reported=%d %s",
			reference, expected, s.cfg.Currency, tx.Amount, tx.Currency)
		return nil, fmt.Errorf("%w: expected %d, gateway reported %d", ErrAmountMismatch, expected, tx.Amount)
	}

	shipping, err := json.Marshal(draft.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}

	order := &models.Order{
		ID:               uuid.New().String(),
		PaymentReference: reference,
		UserID:           draft.UserID,
		Email:            draft.Customer.Email,
		TotalAmount:      draft.TotalAmount,
		Currency:         s.cfg.Currency.String(),
		Status:           models.OrderStatusCompleted,
		PaymentMethod:    models.PaymentMethodPaystack,
		ShippingAddress:  models.JSON(shipping),
	}
	if err := s.orders.Create(order); err != nil {
		if errors.Is(err, repositories.ErrDuplicateReference) {
			// A concurrent reconciliation recorded it first.
			existing, lookupErr := s.orders.GetByReference(reference)
			if lookupErr == nil {
				return &ReconcileResult{Order: existing, Created: false}, nil
			}
			err = lookupErr
		}
		log.Printf("PAID_BUT_UNRECORDED reference=%s amount=%d: %v", reference, tx.Amount, err)
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}

	items := make([]models.OrderItem, 0, len(draft.Items))
	for _, line := range draft.Items {
		items = append(items, models.OrderItem{
			OrderID:         order.ID,
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.UnitPrice,
		})
	}
	if err := s.orders.CreateItems(items); err != nil {
		log.Printf("ORDER_ITEMS_INCOMPLETE order=%s reference=%s items=%d: %v", order.ID, reference, len(items), err)
	} else {
		order.Items = items
	}

	s.publishCompleted(order, draft)

	return &ReconcileResult{Order: order, Created: true}, nil
}

func (s *PaymentService) publishCompleted(order *models.Order, draft models.OrderDraft) {
	if s.publisher == nil {
		return
	}
	event := models.OrderCompletedEvent{
		OrderID:   order.ID,
		Reference: order.PaymentReference,
		Email:     order.Email,
		FirstName: draft.Customer.FirstName,
		Total:     order.TotalAmount,
		Currency:  order.Currency,
		ItemCount: len(draft.Items),
	}
	if err := s.publisher.PublishOrderCompleted(event); err != nil {
		log.Printf("Warning: Failed to publish order completed event for order %s: %v", order.ID, err)
	}
}

func (s *PaymentService) translateGatewayError(err error, fallback error) error {
	var apiErr *paystack.APIError
	switch {
	case errors.Is(err, paystack.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrGatewayTimeout
	case errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "duplicate"):
		return ErrConflict
	default:
		return fallback
	}
}

// transactionNotFound reports whether the gateway answered that it has no
// transaction under the reference. Paystack uses 404 and, on some
// endpoints, 400 with a "not found" message; other 4xx answers (bad key,
// throttling) say nothing about the payment.
func transactionNotFound(err error) bool {
	var apiErr *paystack.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case 404:
		return true
	case 400:
		return strings.Contains(strings.ToLower(apiErr.Message), "not found")
	default:
		return false
	}
}

// decodeDraft recovers the draft embedded at initialization. The gateway
// may hand metadata back as an object or as a JSON-encoded string.
func decodeDraft(raw json.RawMessage) (models.OrderDraft, error) {
	var draft models.OrderDraft
	if len(raw) == 0 || string(raw) == "null" {
		return draft, errors.New("transaction has no metadata")
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return draft, err
		}
		raw = json.RawMessage(inner)
	}
	if err := json.Unmarshal(raw, &draft); err != nil {
		return draft, err
	}
	if len(draft.Items) == 0 {
		return draft, errors.New("metadata has no line items")
	}
	return draft, nil
}

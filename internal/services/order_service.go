package services

import (
	"errors"
	"fmt"

	"herbstore/internal/models"
	"herbstore/internal/repositories"
)

// OrderService is the admin view of recorded orders. Orders are only ever
// created by PaymentService.Reconcile.
type OrderService struct {
	orders repositories.OrderRepository
}

// NewOrderService creates a new OrderService.
func NewOrderService(orders repositories.OrderRepository) *OrderService {
	return &OrderService{orders: orders}
}

// List returns recorded orders, newest first.
func (s *OrderService) List(filter repositories.OrderFilter) ([]models.Order, error) {
	if filter.Status != "" && !models.ValidOrderStatus(filter.Status) {
		return nil, invalidStatus(filter.Status)
	}
	return s.orders.List(filter)
}

// Get returns one order with its lines.
func (s *OrderService) Get(id string) (*models.Order, error) {
	order, err := s.orders.GetByID(id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return order, err
}

// ByReference returns the order recorded for a payment reference.
func (s *OrderService) ByReference(reference string) (*models.Order, error) {
	order, err := s.orders.GetByReference(reference)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: no order for reference %s", ErrNotFound, reference)
	}
	return order, err
}

// SetStatus changes an order's administrative status.
func (s *OrderService) SetStatus(id string, status string) error {
	if !models.ValidOrderStatus(status) {
		return invalidStatus(status)
	}

	err := s.orders.UpdateStatus(id, status)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to set status of order %s: %w", id, err)
	}
	return nil
}

func invalidStatus(status string) error {
	return validationError(fmt.Sprintf("invalid order status: %s", status),
		map[string]string{"status": "must be pending, completed or cancelled"})
}

package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"herbstore/internal/models"

	"github.com/google/uuid"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
// It enforces the same reference uniqueness as the database schema.
type MemoryOrderRepository struct {
	orders      map[string]models.Order
	byReference map[string]string
	items       map[string][]models.OrderItem
	nextItemID  uint
	mu          sync.RWMutex
}

// NewMemoryOrderRepository creates a new instance of MemoryOrderRepository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:      make(map[string]models.Order),
		byReference: make(map[string]string),
		items:       make(map[string][]models.OrderItem),
	}
}

// List returns the orders matching filter, newest first.
func (r *MemoryOrderRepository) List(filter OrderFilter) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.matches(order) {
			orderList = append(orderList, order)
		}
	}
	sort.Slice(orderList, func(i, j int) bool {
		return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
	})
	return orderList, nil
}

// GetByID returns an order and its items.
func (r *MemoryOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s not found: %w", id, ErrNotFound)
	}
	order.Items = append([]models.OrderItem(nil), r.items[id]...)
	return &order, nil
}

// GetByReference returns the order recorded for a payment reference.
func (r *MemoryOrderRepository) GetByReference(reference string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byReference[reference]
	if !ok {
		return nil, fmt.Errorf("order with reference %s not found: %w", reference, ErrNotFound)
	}
	order := r.orders[id]
	return &order, nil
}

// Create adds a new order header.
func (r *MemoryOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byReference[order.PaymentReference]; taken {
		return fmt.Errorf("order for reference %s: %w", order.PaymentReference, ErrDuplicateReference)
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	stored.Items = nil
	r.orders[order.ID] = stored
	r.byReference[order.PaymentReference] = order.ID
	return nil
}

// CreateItems appends items to their orders.
func (r *MemoryOrderRepository) CreateItems(items []models.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if _, ok := r.orders[item.OrderID]; !ok {
			return fmt.Errorf("order with ID %s not found for items: %w", item.OrderID, ErrNotFound)
		}
	}
	for _, item := range items {
		r.nextItemID++
		item.ID = r.nextItemID
		item.CreatedAt = time.Now()
		r.items[item.OrderID] = append(r.items[item.OrderID], item)
	}
	return nil
}

// UpdateStatus updates the status of an order.
func (r *MemoryOrderRepository) UpdateStatus(id string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s not found for status update: %w", id, ErrNotFound)
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

package repositories

import (
	"strings"

	"herbstore/internal/models"
)

// OrderFilter narrows an order listing. Empty fields match everything.
type OrderFilter struct {
	Status string
	Email  string
}

func (f OrderFilter) matches(order models.Order) bool {
	if f.Status != "" && order.Status != f.Status {
		return false
	}
	return f.Email == "" || strings.EqualFold(order.Email, f.Email)
}

// OrderRepository is the order header and line store.
type OrderRepository interface {
	List(filter OrderFilter) ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	GetByReference(reference string) (*models.Order, error)
	// Create inserts the order header only. It fails with
	// ErrDuplicateReference when the payment reference is already taken.
	Create(order *models.Order) error
	CreateItems(items []models.OrderItem) error
	UpdateStatus(id string, status string) error
}

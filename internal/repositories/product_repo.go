package repositories

import (
	"herbstore/internal/models"
)

// ProductFilter narrows a catalog listing. The zero value lists everything.
type ProductFilter struct {
	// Search matches case-insensitively against name and description.
	Search  string
	InStock bool
}

// ProductRepository is the catalog store.
type ProductRepository interface {
	List(filter ProductFilter) ([]models.Product, error)
	Find(id string) (*models.Product, error)
	Save(product *models.Product) error
	Update(product *models.Product) error
	Remove(id string) error
}

package repositories

import (
	"errors"
	"fmt"
	"strings"

	"herbstore/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository keeps the catalog in the products table.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{db: db}
}

// List returns the products matching filter, ordered by name.
func (r *GORMProductRepository) List(filter ProductFilter) ([]models.Product, error) {
	query := r.db.Model(&models.Product{})
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.InStock {
		query = query.Where("stock > 0")
	}

	var products []models.Product
	if err := query.Order("name").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Find loads one product.
func (r *GORMProductRepository) Find(id string) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("id = ?", id).Take(&product).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	return &product, nil
}

// Save inserts a product, assigning an id when it has none.
func (r *GORMProductRepository) Save(product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to save product %s: %w", product.Name, err)
	}
	return nil
}

// Update overwrites the editable columns of an existing product.
func (r *GORMProductRepository) Update(product *models.Product) error {
	res := r.db.Model(&models.Product{}).Where("id = ?", product.ID).
		Select("name", "description", "price", "stock", "image_url", "updated_at").
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product %s: %w", product.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Remove soft-deletes a product. Order lines keep their own copy of the
// product id and price.
func (r *GORMProductRepository) Remove(id string) error {
	res := r.db.Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return nil
}

package services

import (
	"errors"
	"fmt"
	"strings"

	"herbstore/internal/models"
	"herbstore/internal/repositories"
)

// ProductService manages the catalog shoppers add to their carts.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// List returns the catalog narrowed by filter.
func (s *ProductService) List(filter repositories.ProductFilter) ([]models.Product, error) {
	return s.repo.List(filter)
}

// Get returns one product or ErrNotFound.
func (s *ProductService) Get(id string) (*models.Product, error) {
	product, err := s.repo.Find(id)
	return product, notFound(err)
}

// Add stores a new product. Prices are kept to two decimal places.
func (s *ProductService) Add(product *models.Product) error {
	normalizeProduct(product)
	return s.repo.Save(product)
}

// Edit replaces the editable fields of an existing product.
func (s *ProductService) Edit(product *models.Product) error {
	normalizeProduct(product)
	return notFound(s.repo.Update(product))
}

// Remove takes a product off the catalog.
func (s *ProductService) Remove(id string) error {
	return notFound(s.repo.Remove(id))
}

// Price returns items with names and unit prices taken from the catalog.
// A line naming an unknown product, or quoting a price other than the
// catalog's, is rejected.
func (s *ProductService) Price(items []models.DraftLineItem) ([]models.DraftLineItem, error) {
	priced := make([]models.DraftLineItem, len(items))
	fields := make(map[string]string)
	for i, item := range items {
		key := fmt.Sprintf("items[%d]", i)
		product, err := s.repo.Find(item.ProductID)
		if errors.Is(err, repositories.ErrNotFound) {
			fields[key+".product_id"] = "unknown product"
			continue
		}
		if err != nil {
			return nil, err
		}
		if !item.UnitPrice.IsZero() && !item.UnitPrice.Equal(product.Price) {
			fields[key+".unit_price"] = "does not match catalog"
			continue
		}
		item.Name = product.Name
		item.UnitPrice = product.Price
		priced[i] = item
	}
	if len(fields) > 0 {
		return nil, validationError("line items do not match the catalog", fields)
	}
	return priced, nil
}

func normalizeProduct(product *models.Product) {
	product.Name = strings.TrimSpace(product.Name)
	product.Price = product.Price.Round(2)
}

// notFound rewraps a repository miss as ErrNotFound, keeping the message.
func notFound(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

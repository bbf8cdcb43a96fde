package services

import (
	"context"
	"errors"
	"fmt"

	"herbstore/internal/cart"
	"herbstore/internal/repositories"
)

// CartService edits a session's cart against the live catalog.
type CartService struct {
	store    cart.Store
	products repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(store cart.Store, products repositories.ProductRepository) *CartService {
	return &CartService{store: store, products: products}
}

// GetCart returns the session's cart, empty if it has none.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return s.store.Get(ctx, sessionID)
}

// AddItem snapshots the product's name, price and image into the cart.
func (s *CartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*cart.Cart, error) {
	if quantity <= 0 {
		return nil, validationError("quantity must be positive", map[string]string{"quantity": "must be greater than 0"})
	}
	product, err := s.products.Find(productID)
	if err != nil {
		return nil, notFound(err)
	}

	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.Add(cart.Item{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		ImageURL:  product.ImageURL,
	}); err != nil {
		return nil, cartError(err)
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateQuantity sets a line's quantity; zero removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*cart.Cart, error) {
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.SetQuantity(productID, quantity); err != nil {
		return nil, cartError(err)
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*cart.Cart, error) {
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.Remove(productID); err != nil {
		return nil, cartError(err)
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ClearCart destroys the session's cart.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

func cartError(err error) error {
	switch {
	case errors.Is(err, cart.ErrItemNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, cart.ErrInvalidQuantity):
		return validationError(err.Error(), map[string]string{"quantity": err.Error()})
	}
	return err
}

// Package cart holds the shopper's basket between page views.
package cart

import (
	"context"
	"errors"
	"time"

	"herbstore/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound    = errors.New("item not in cart")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Item is one cart line with the product details captured when it was added.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// Subtotal is UnitPrice * Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart belongs to exactly one browsing session.
type Cart struct {
	SessionID string    `json:"session_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty cart for sessionID.
func New(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Items: []Item{}}
}

// Add puts item in the cart, merging with an existing line for the same
// product. The newest name, price and image win.
func (c *Cart) Add(item Item) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			item.Quantity += c.Items[i].Quantity
			c.Items[i] = item
			c.touch()
			return nil
		}
	}
	c.Items = append(c.Items, item)
	c.touch()
	return nil
}

// SetQuantity changes a line's quantity. Zero removes the line.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		return c.Remove(productID)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.touch()
			return nil
		}
	}
	return ErrItemNotFound
}

// Remove drops the line for productID.
func (c *Cart) Remove(productID string) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.touch()
			return nil
		}
	}
	return ErrItemNotFound
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.touch()
}

// Subtotal is the sum of every line.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// LineItems freezes the cart into order draft lines.
func (c *Cart) LineItems() []models.DraftLineItem {
	lines := make([]models.DraftLineItem, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, models.DraftLineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now()
}

// Store persists carts by session. Get returns an empty cart for an
// unknown session rather than an error.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

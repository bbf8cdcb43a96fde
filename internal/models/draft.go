package models

import "github.com/shopspring/decimal"

// CustomerContact is how to reach the buyer.
type CustomerContact struct {
	FirstName string `json:"first_name" validate:"required,notblank,max=100"`
	LastName  string `json:"last_name" validate:"required,notblank,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,notblank,max=30"`
}

// ShippingDetails is where the order goes.
type ShippingDetails struct {
	Address string `json:"address" validate:"required,notblank,max=255"`
	City    string `json:"city" validate:"required,notblank,max=100"`
	State   string `json:"state" validate:"required,notblank,max=100"`
}

// DraftLineItem is a cart line frozen at the price shown at checkout.
type DraftLineItem struct {
	ProductID string          `json:"product_id" validate:"required,notblank,max=36"`
	Name      string          `json:"name,omitempty" validate:"omitempty,max=100"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required,gt=0"`
}

// Subtotal is UnitPrice * Quantity.
func (i DraftLineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderDraft is the in-flight description of a purchase. It is never
// stored locally: the whole draft rides along in the gateway's transaction
// metadata and is recovered from there on verification, so every field
// added here must survive a JSON round trip through the gateway.
type OrderDraft struct {
	Customer    CustomerContact `json:"customer"`
	Shipping    ShippingDetails `json:"shipping"`
	Items       []DraftLineItem `json:"items" validate:"required,min=1,dive"`
	TotalAmount decimal.Decimal `json:"total_amount" validate:"required,gt=0"`
	Reference   string          `json:"reference,omitempty" validate:"omitempty,payref"`
	UserID      string          `json:"user_id,omitempty" validate:"omitempty,max=36"`
}

// ComputedTotal sums the line subtotals.
func (d OrderDraft) ComputedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Snapshot returns the customer and shipping block stored on the order.
func (d OrderDraft) Snapshot() ShippingSnapshot {
	return ShippingSnapshot{Customer: d.Customer, Shipping: d.Shipping}
}

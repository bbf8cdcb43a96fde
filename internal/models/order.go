package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. The payment flow only ever writes OrderStatusCompleted;
// the other transitions belong to the admin workflow.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// PaymentMethodPaystack is recorded on orders paid through the hosted page.
const PaymentMethodPaystack = "paystack"

// ValidOrderStatus reports whether status is one of the known order statuses.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is one purchased line. ProductID is a weak reference: the
// product may later change or disappear without affecting the order.
type OrderItem struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	OrderID         string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	ProductID       string          `json:"product_id" gorm:"type:varchar(36);not null"`
	Quantity        int             `json:"quantity" gorm:"not null"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase" gorm:"type:numeric(12,2);not null"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Order is a durable record of one successfully verified payment.
type Order struct {
	ID               string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PaymentReference string          `json:"payment_reference" gorm:"type:varchar(100);uniqueIndex;not null"`
	UserID           string          `json:"user_id,omitempty" gorm:"type:varchar(36);index"`
	Email            string          `json:"email" gorm:"type:varchar(255)"`
	TotalAmount      decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	Currency         string          `json:"currency" gorm:"type:varchar(3)"`
	Status           string          `json:"status" gorm:"type:varchar(20);not null"`
	PaymentMethod    string          `json:"payment_method" gorm:"type:varchar(50)"`
	ShippingAddress  JSON            `json:"shipping_address"`
	Items            []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ShippingSnapshot is the customer and address block stored verbatim on an order.
type ShippingSnapshot struct {
	Customer CustomerContact `json:"customer"`
	Shipping ShippingDetails `json:"shipping"`
}

package models

import "github.com/shopspring/decimal"

// OrderCompletedEvent is published once per newly recorded order.
type OrderCompletedEvent struct {
	OrderID   string          `json:"order_id"`
	Reference string          `json:"reference"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	ItemCount int             `json:"item_count"`
}

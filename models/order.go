package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusFulfilled = "fulfilled"
)

const (
	PaymentMethodGateway     = "paystack"
	PaymentMethodMobileMoney = "momo"
)

// Order is created once per successful checkout and never edited afterwards, apart from
// the pending to fulfilled status change.
type Order struct {
	ID               string          `json:"id"`
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone"`
	CustomerEmail    string          `json:"customer_email"`
	CustomerAddress  string          `json:"customer_address"`
	Items            []CartItem      `json:"items"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	PaymentMethod    string          `json:"payment_method"`
	Network          string          `json:"network,omitempty"`
	MomoNumber       string          `json:"momo_number,omitempty"`
	PaymentReference string          `json:"payment_reference"`
	IsPaid           bool            `json:"is_paid"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Clone returns a deep copy of o.
func (o Order) Clone() Order {
	o.Items = CloneItems(o.Items)
	return o
}

// OrderStats summarises the ledger for the admin dashboard.
type OrderStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Fulfilled int `json:"fulfilled"`
	Paid      int `json:"paid"`
}

// OrderPlacedEvent is published after an order has been appended to the ledger.
type OrderPlacedEvent struct {
	Event     string          `json:"event"`
	OrderID   string          `json:"order_id"`
	SessionID string          `json:"session_id"`
	Email     string          `json:"email"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Method    string          `json:"payment_method"`
	Reference string          `json:"payment_reference"`
	ItemCount int             `json:"item_count"`
	Timestamp time.Time       `json:"timestamp"`
}

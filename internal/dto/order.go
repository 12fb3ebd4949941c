package dto

import "time"

// NewOrderItem is a line item submitted on create or add-items.
type NewOrderItem struct {
	ProductID int64    `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Modifiers []string `json:"modifiers,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// CreateOrderRequest is the payload for opening a new order.
type CreateOrderRequest struct {
	Channel string         `json:"channel"`
	TableID *int64         `json:"table_id,omitempty"`
	Notes   string         `json:"notes,omitempty"`
	Items   []NewOrderItem `json:"items"`
}

// AddItemsRequest appends items to an open order.
type AddItemsRequest struct {
	Items []NewOrderItem `json:"items"`
}

// UpdateStatusRequest moves an order or item to a new status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// PaymentSplit is one component of a mixed payment.
type PaymentSplit struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

// PayOrderRequest settles an order.
type PayOrderRequest struct {
	Method string         `json:"method"`
	Splits []PaymentSplit `json:"splits,omitempty"`
}

// CancelOrderRequest cancels an order with an optional reason.
type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

// OrderItemResponse represents an order line as exposed via transport layers.
type OrderItemResponse struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"product_id"`
	Name      string   `json:"name"`
	UnitPrice float64  `json:"unit_price"`
	Quantity  int      `json:"quantity"`
	Modifiers []string `json:"modifiers,omitempty"`
	Status    string   `json:"status"`
	Notes     string   `json:"notes,omitempty"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID            int64               `json:"id"`
	TenantID      int64               `json:"tenant_id"`
	Number        int64               `json:"number"`
	Channel       string              `json:"channel"`
	Status        string              `json:"status"`
	TableID       *int64              `json:"table_id,omitempty"`
	Subtotal      float64             `json:"subtotal"`
	Total         float64             `json:"total"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

package domain

import (
	"fmt"
	"strconv"
)

type OrderStatus int

const (
	OrderStatusPending OrderStatus = iota + 1
	OrderStatusProcessing
	OrderStatusShipped
	OrderStatusDelivered
	OrderStatusCancelled
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:    "Pending",
	OrderStatusProcessing: "Processing",
	OrderStatusShipped:    "Shipped",
	OrderStatusDelivered:  "Delivered",
	OrderStatusCancelled:  "Cancelled",
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// String representation (for logging and CLI output)
func (s OrderStatus) String() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("Unknown(%d)", int(s))
}

// ParseOrderStatus accepts either the numeric code or the label, case-insensitively.
func ParseOrderStatus(v string) (OrderStatus, error) {
	if n, err := strconv.Atoi(v); err == nil {
		s := OrderStatus(n)
		if !s.Valid() {
			return 0, fmt.Errorf("unknown order status %d", n)
		}
		return s, nil
	}
	for s, label := range orderStatusLabels {
		if equalFold(label, v) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", v)
}

type OrderItemRequest struct {
	ProductID ID  `json:"productId"`
	Quantity  int `json:"quantity"`
}

// OrderDraft is the body of an order-creation call. It is never persisted.
type OrderDraft struct {
	CustomerID      string             `json:"customerId"`
	ShippingAddress string             `json:"shippingAddress"`
	BillingAddress  string             `json:"billingAddress"`
	Items           []OrderItemRequest `json:"orderItems"`
}

type OrderLine struct {
	ID          ID      `json:"id"`
	ProductID   ID      `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

type Order struct {
	ID              ID          `json:"id"`
	CustomerID      string      `json:"customerId"`
	CustomerName    string      `json:"customerName"`
	Date            string      `json:"date"`
	Status          OrderStatus `json:"status"`
	TotalAmount     float64     `json:"totalAmount"`
	ShippingAddress string      `json:"shippingAddress"`
	BillingAddress  string      `json:"billingAddress"`
	Notes           string      `json:"notes,omitempty"`
	Items           []OrderLine `json:"orderItems"`
}

// OrderQuery filters the order listing. Zero values are not sent.
type OrderQuery struct {
	Search     string
	Status     OrderStatus
	PageNumber int
	PageSize   int
}

package domain

import "time"

// LineItem is one product's entry in the cart. The JSON shape matches the
// product payload so a snapshot carries everything needed for display.
type LineItem struct {
	ProductID   ID        `json:"id"`
	ProductName string    `json:"name"`
	UnitPrice   float64   `json:"currentUnitPrice"`
	Quantity    int       `json:"quantity"`
	SKU         string    `json:"sku,omitempty"`
	Description string    `json:"description,omitempty"`
	AddedAt     time.Time `json:"addedAt,omitempty"`
}

func LineItemFromProduct(p Product) LineItem {
	return LineItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.CurrentUnitPrice,
		SKU:         p.SKU,
		Description: p.Description,
	}
}

func (i LineItem) Subtotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

type Cart struct {
	Owner string
	Items []LineItem
}

func (c Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

func (c Cart) TotalPrice() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

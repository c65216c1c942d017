package domain

type Product struct {
	ID               ID      `json:"id"`
	SKU              string  `json:"sku,omitempty"`
	InternalCode     string  `json:"internalCode,omitempty"`
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	CurrentUnitPrice float64 `json:"currentUnitPrice"`
	StockQuantity    int     `json:"stockQuantity"`
	IsActive         bool    `json:"isActive"`
}

// ProductPage is the admin listing envelope.
type ProductPage struct {
	Items []Product `json:"productItems"`
	Total int       `json:"total"`
}

// ProductQuery filters the admin product listing. Zero values are not sent.
type ProductQuery struct {
	Search     string
	Status     string
	PageNumber int
	PageSize   int
}

// ProductInput is the body of product create and update calls.
type ProductInput struct {
	SKU              string  `json:"sku"`
	InternalCode     string  `json:"internalCode"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	CurrentUnitPrice float64 `json:"currentUnitPrice"`
	StockQuantity    int     `json:"stockQuantity"`
	IsActive         bool    `json:"isActive"`
}

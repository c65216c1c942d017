package catalog

import (
	"context"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const (
	OrderPageSize = 10
	// orderFetchSize is how many orders are pulled before filtering locally.
	orderFetchSize = 100
)

// OrderFilter narrows an order list. Zero values match everything.
type OrderFilter struct {
	CustomerName string
	Status       domain.OrderStatus
}

type OrderPage struct {
	Items      []domain.Order
	PageNumber int
	TotalPages int
	Total      int
}

// FilterOrders keeps orders whose customer name contains the filter text,
// ignoring case, and whose status matches when one is set.
func FilterOrders(orders []domain.Order, f OrderFilter) []domain.Order {
	term := strings.ToLower(strings.TrimSpace(f.CustomerName))
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if term != "" && !strings.Contains(strings.ToLower(o.CustomerName), term) {
			continue
		}
		if f.Status.Valid() && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Paginate slices orders into pages of size. There is always at least one
// page and page is clamped into range.
func Paginate(orders []domain.Order, page, size int) OrderPage {
	if size < 1 {
		size = OrderPageSize
	}
	total := len(orders)
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := min(start+size, total)
	items := make([]domain.Order, end-start)
	copy(items, orders[start:end])

	return OrderPage{
		Items:      items,
		PageNumber: page,
		TotalPages: totalPages,
		Total:      total,
	}
}

// ListOrders fetches orders and filters and pages them locally, since the API
// does not reliably honour its own filters.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter, page int) (OrderPage, error) {
	orders, err := s.api.Orders(ctx, domain.OrderQuery{PageNumber: 1, PageSize: orderFetchSize})
	if err != nil {
		return OrderPage{}, err
	}
	return Paginate(FilterOrders(orders, f), page, OrderPageSize), nil
}

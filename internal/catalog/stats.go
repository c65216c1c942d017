package catalog

import (
	"context"
	"log/slog"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Stats struct {
	Products int
	Orders   int
	// Err is a user-facing message; figures are zero when it is set.
	Err string
}

// DashboardStats gathers the home screen figures. It never fails: errors
// degrade to zeros and a message.
func (s *Service) DashboardStats(ctx context.Context) Stats {
	page, err := s.api.AdminProducts(ctx, domain.ProductQuery{PageNumber: 1, PageSize: 1})
	if err != nil {
		s.logger.WarnContext(ctx, "dashboard products failed", slog.String("error", err.Error()))
		return Stats{Err: "Could not load dashboard figures."}
	}

	orders, err := s.api.Orders(ctx, domain.OrderQuery{PageNumber: 1, PageSize: orderFetchSize})
	if err != nil {
		s.logger.WarnContext(ctx, "dashboard orders failed", slog.String("error", err.Error()))
		return Stats{Err: "Could not load dashboard figures."}
	}

	return Stats{Products: page.Total, Orders: len(orders)}
}

package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// PublicProducts returns the catalog shown to shoppers.
func (c *Client) PublicProducts(ctx context.Context) ([]domain.Product, error) {
	raw, err := c.send(ctx, call{
		route:  "products.public",
		method: http.MethodGet,
		path:   "/products",
	})
	if err != nil {
		return nil, err
	}
	items, _, err := decodeList[domain.Product](raw)
	if err != nil {
		return nil, fmt.Errorf("products.public: %w", err)
	}
	return items, nil
}

// SearchProducts is the paged product listing used by the management views.
func (c *Client) SearchProducts(ctx context.Context, q domain.ProductQuery) (domain.ProductPage, error) {
	return c.productPage(ctx, "products.search", "/products", q)
}

// AdminProducts lists every product including inactive ones.
func (c *Client) AdminProducts(ctx context.Context, q domain.ProductQuery) (domain.ProductPage, error) {
	return c.productPage(ctx, "products.admin", "/products/admin", q)
}

func (c *Client) productPage(ctx context.Context, route, path string, q domain.ProductQuery) (domain.ProductPage, error) {
	raw, err := c.send(ctx, call{
		route:  route,
		method: http.MethodGet,
		path:   path,
		query:  productParams(q),
	})
	if err != nil {
		return domain.ProductPage{}, err
	}
	items, total, err := decodeList[domain.Product](raw)
	if err != nil {
		return domain.ProductPage{}, fmt.Errorf("%s: %w", route, err)
	}
	return domain.ProductPage{Items: items, Total: total}, nil
}

func productParams(q domain.ProductQuery) url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.PageNumber > 0 {
		v.Set("pageNumber", strconv.Itoa(q.PageNumber))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return v
}

func (c *Client) Product(ctx context.Context, id domain.ID) (domain.Product, error) {
	var p domain.Product
	err := c.do(ctx, call{
		route:  "products.get",
		method: http.MethodGet,
		path:   "/products/" + url.PathEscape(id.String()),
	}, &p)
	return p, err
}

// CreateProduct returns the created product when the API echoes it back.
func (c *Client) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	var p domain.Product
	err := c.do(ctx, call{
		route:  "products.create",
		method: http.MethodPost,
		path:   "/products",
		body:   in,
	}, &p)
	return p, err
}

func (c *Client) UpdateProduct(ctx context.Context, id domain.ID, in domain.ProductInput) error {
	return c.do(ctx, call{
		route:  "products.update",
		method: http.MethodPut,
		path:   "/products/" + url.PathEscape(id.String()),
		body:   in,
	}, nil)
}

func (c *Client) DeleteProduct(ctx context.Context, id domain.ID) error {
	return c.do(ctx, call{
		route:  "products.delete",
		method: http.MethodDelete,
		path:   "/products/" + url.PathEscape(id.String()),
	}, nil)
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// IdempotencyHeader carries the key that lets the API de-duplicate order
// submissions retried by the client.
const IdempotencyHeader = "Idempotency-Key"

// Orders fetches orders. The API may ignore the filters; callers that need
// exact filtering apply it locally.
func (c *Client) Orders(ctx context.Context, q domain.OrderQuery) ([]domain.Order, error) {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Status.Valid() {
		v.Set("status", strconv.Itoa(int(q.Status)))
	}
	if q.PageNumber > 0 {
		v.Set("pageNumber", strconv.Itoa(q.PageNumber))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}

	raw, err := c.send(ctx, call{
		route:  "orders.list",
		method: http.MethodGet,
		path:   "/orders",
		query:  v,
	})
	if err != nil {
		return nil, err
	}
	items, _, err := decodeList[domain.Order](raw)
	if err != nil {
		return nil, fmt.Errorf("orders.list: %w", err)
	}
	return items, nil
}

func (c *Client) Order(ctx context.Context, id domain.ID) (domain.Order, error) {
	var o domain.Order
	err := c.do(ctx, call{
		route:  "orders.get",
		method: http.MethodGet,
		path:   "/orders/" + url.PathEscape(id.String()),
	}, &o)
	return o, err
}

// CreateOrder submits draft. idempotencyKey is sent when non-empty. The API
// may answer with the order, its bare id, or nothing.
func (c *Client) CreateOrder(ctx context.Context, draft domain.OrderDraft, idempotencyKey string) (domain.Order, error) {
	cl := call{
		route:  "orders.create",
		method: http.MethodPost,
		path:   "/orders",
		body:   draft,
	}
	if idempotencyKey != "" {
		cl.headers = map[string]string{IdempotencyHeader: idempotencyKey}
	}

	raw, err := c.send(ctx, cl)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeCreatedOrder(raw), nil
}

func decodeCreatedOrder(raw []byte) domain.Order {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return domain.Order{}
	}
	var o domain.Order
	if raw[0] == '{' && json.Unmarshal(raw, &o) == nil {
		return o
	}
	var id domain.ID
	if json.Unmarshal(raw, &id) == nil {
		return domain.Order{ID: id}
	}
	return domain.Order{}
}

type statusUpdate struct {
	NewStatus int `json:"newStatus"`
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id domain.ID, status domain.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("orders.update_status: invalid status %d", int(status))
	}
	return c.do(ctx, call{
		route:  "orders.update_status",
		method: http.MethodPut,
		path:   "/orders/" + url.PathEscape(id.String()) + "/status",
		body:   statusUpdate{NewStatus: int(status)},
	}, nil)
}

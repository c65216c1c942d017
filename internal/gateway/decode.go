package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// envelope covers the list shapes the API returns: either a bare array or an
// object carrying the array under one of several keys.
type envelope[T any] struct {
	ProductItems []T  `json:"productItems"`
	Items        []T  `json:"items"`
	Total        *int `json:"total"`
}

// decodeList returns the items and the server-reported total. When the
// server reports no total, the item count is used.
func decodeList[T any](raw []byte) ([]T, int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, 0, nil
	}

	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, 0, fmt.Errorf("decode list: %w", err)
		}
		return items, len(items), nil
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, fmt.Errorf("decode list: %w", err)
	}
	items := env.ProductItems
	if items == nil {
		items = env.Items
	}
	if items == nil {
		items = []T{}
	}
	total := len(items)
	if env.Total != nil {
		total = *env.Total
	}
	return items, total, nil
}

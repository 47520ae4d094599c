package handler

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/DukeRupert/rinsr/internal/domain"
	"github.com/DukeRupert/rinsr/internal/format"
)

// reshapeLatestOrders turns the upstream latest-orders payload into the
// rows shown on the dashboard overview. The list may arrive bare or wrapped
// under "data", "orders" or "items" (also one level down under "data").
func reshapeLatestOrders(payload any) (any, error) {
	orders := orderList(payload)
	rows := make([]domain.OrderRow, 0, len(orders))
	for _, o := range orders {
		order, ok := o.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, orderRow(order))
	}
	return rows, nil
}

func orderList(payload any) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range []string{"data", "orders", "items"} {
			switch inner := v[key].(type) {
			case []any:
				return inner
			case map[string]any:
				if key == "data" {
					if list := orderList(inner); list != nil {
						return list
					}
				}
			}
		}
	}
	return nil
}

func orderRow(order map[string]any) domain.OrderRow {
	user, _ := order["user"].(map[string]any)
	if user == nil {
		user, _ = order["customer"].(map[string]any)
	}

	name := firstText(user, "name", "fullName", "username")
	if name == "" {
		name = firstText(order, "customerName", "name")
	}
	email := firstText(user, "email")
	if email == "" {
		email = firstText(order, "email")
	}

	return domain.OrderRow{
		ID:       firstText(order, "_id", "id", "orderId"),
		Name:     name,
		Email:    email,
		Avatar:   firstText(user, "avatar", "profileImage", "image"),
		Fallback: format.Initials(name),
		Amount:   format.INR(firstNumber(order, "total_price", "totalPrice", "amount", "total")),
		Status:   format.Title(firstText(order, "status")),
		Date:     format.Date(firstText(order, "createdAt", "created_at", "date")),
	}
}

// firstText returns the first key holding a non-empty string or number.
func firstText(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// firstNumber returns the first key holding a number or numeric string.
func firstNumber(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

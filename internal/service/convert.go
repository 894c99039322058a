package service

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tapntake/api/internal/database"
	"github.com/tapntake/api/internal/order"
)

// orderFromRow converts a database.Order to the domain order.
func orderFromRow(row database.Order) (order.Order, error) {
	var items []order.Item
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &items); err != nil {
			return order.Order{}, fmt.Errorf("decode items of %s: %w", row.ID, err)
		}
	}
	return order.Order{
		ID:              row.ID,
		Items:           items,
		Total:           numericToDecimal(row.Total),
		Status:          row.Status,
		CustomerName:    row.CustomerName,
		TableNumber:     row.TableNumber.String,
		Timestamp:       row.CreatedAt.Time,
		PaymentStatus:   row.PaymentStatus,
		PaymentMethod:   row.PaymentMethod.String,
		StripeSessionID: row.StripeSessionID.String,
		Version:         row.Version,
		UpdatedAt:       row.UpdatedAt.Time,
	}, nil
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

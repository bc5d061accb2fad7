// Package reconcile derives cart lines, totals and checkout gating from either a
// backend cart or the guest cart joined against the catalog, so both paths give
// the same numbers.
//
// Every amount is recomputed here as unit price × quantity. Backend-supplied
// totals are advisory and never read.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

// StockState is a line's stock validity.
type StockState string

const (
	StockUnknown    StockState = "unknown"       // backend did not report stock
	StockValid      StockState = "valid"
	StockOutOfStock StockState = "out_of_stock"
	StockExceeds    StockState = "exceeds_stock" // quantity above what is available
)

// Blocking reports whether the state prevents checkout. Unknown does not block.
func (s StockState) Blocking() bool {
	return s == StockOutOfStock || s == StockExceeds
}

// EvaluateStock classifies a line. A nil stock means the field was absent.
// Zero stock is out of stock; a quantity above a positive stock exceeds it.
// Anything else, including a negative count, is valid.
func EvaluateStock(quantity int, stock *int) StockState {
	switch {
	case stock == nil:
		return StockUnknown
	case *stock == 0:
		return StockOutOfStock
	case *stock > 0 && quantity > *stock:
		return StockExceeds
	default:
		return StockValid
	}
}

// Line is one priced cart line, identical in shape for guest and backend carts.
type Line struct {
	ProductID     string          `json:"product_id"`
	ItemID        string          `json:"item_id,omitempty"` // backend item id; empty for guests
	Name          string          `json:"name"`
	Image         string          `json:"image,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	StockQuantity *int            `json:"stock_quantity,omitempty"`
	Stock         StockState      `json:"stock"`
	AddedAt       string          `json:"added_at,omitempty"`
}

// Subtotal is price × quantity.
func Subtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

func newLine(p model.Product, quantity int) Line {
	return Line{
		ProductID:     p.ID.String(),
		Name:          p.Name,
		Image:         p.Image,
		UnitPrice:     p.Price.Decimal,
		Quantity:      quantity,
		Subtotal:      Subtotal(p.Price.Decimal, quantity),
		StockQuantity: p.StockQuantity,
		Stock:         EvaluateStock(quantity, p.StockQuantity),
	}
}

// FromRemoteCart prices a backend cart from each item's product snapshot.
// The cart's total_price and item subtotals are ignored.
func FromRemoteCart(cart *model.Cart) []Line {
	if cart == nil {
		return []Line{}
	}
	lines := make([]Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		l := newLine(item.Product, item.Quantity)
		l.ItemID = item.ID.String()
		lines = append(lines, l)
	}
	return lines
}

// JoinGuest enriches guest lines with catalog data. Lines whose product is no
// longer in the catalog are dropped from the result and therefore from the total.
func JoinGuest(guest []model.GuestLine, catalog []model.Product) []Line {
	byID := make(map[string]model.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID.String()] = p
	}

	lines := make([]Line, 0, len(guest))
	for _, g := range guest {
		p, ok := byID[g.ProductID]
		if !ok {
			continue
		}
		l := newLine(p, g.Quantity)
		l.AddedAt = g.AddedAt
		lines = append(lines, l)
	}
	return lines
}

// Total sums line subtotals.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// ItemCount sums line quantities.
func ItemCount(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// Gate is the checkout gate state.
type Gate struct {
	Blocked  bool            `json:"blocked"`
	Messages []model.Message `json:"messages"`
}

// CheckoutGate blocks checkout when the cart is empty or any line's stock state
// blocks. Messages are shopper-facing, one per offending line.
func CheckoutGate(lines []Line) Gate {
	gate := Gate{Messages: []model.Message{}}
	if len(lines) == 0 {
		gate.Blocked = true
		gate.Messages = append(gate.Messages, model.NewErrorMessage(
			"empty_cart", "Your cart is empty", "", model.SeverityRecoverable))
		return gate
	}

	for _, l := range lines {
		switch l.Stock {
		case StockOutOfStock:
			gate.Blocked = true
			gate.Messages = append(gate.Messages, model.NewErrorMessage(
				string(StockOutOfStock),
				fmt.Sprintf("%s is out of stock", displayName(l)),
				l.ProductID, model.SeverityUnrecoverable))
		case StockExceeds:
			gate.Blocked = true
			gate.Messages = append(gate.Messages, model.NewErrorMessage(
				string(StockExceeds),
				fmt.Sprintf("Only %d in stock for %s", *l.StockQuantity, displayName(l)),
				l.ProductID, model.SeverityRecoverable))
		}
	}
	return gate
}

func displayName(l Line) string {
	if l.Name != "" {
		return l.Name
	}
	return "product " + l.ProductID
}

// Totals is the order summary.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
}

// OrderTotals combines the line subtotal with the selected delivery option's fee.
// A nil option means no delivery fee yet.
func OrderTotals(lines []Line, delivery *model.DeliveryOption) Totals {
	sub := Total(lines)
	fee := decimal.Zero
	if delivery != nil {
		fee = delivery.Price.Decimal
	}
	return Totals{
		Subtotal:    sub,
		DeliveryFee: fee,
		Total:       sub.Add(fee),
		ItemCount:   ItemCount(lines),
	}
}

// Package pricing converts the raw per-service quantities of an order into
// priced invoice line items, using the club's fixed price table.
package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/timothe-chaumont/automatic-receipts/internal/order"
)

// ErrBadQuantity is returned when a non-empty quantity cell is not an
// integer. That is a defect in the sheet, not a case to price around.
var ErrBadQuantity = errors.New("quantity is not a whole number")

// Service is one entry of the price table.
type Service struct {
	Designation string
	UnitPrice   decimal.Decimal
}

// Services is the fixed price table, index-aligned with the order's
// quantity slots (A1, A2, A3, Sticker, T-shirt).
var Services = [order.ServiceSlots]Service{
	{Designation: "Impression affiche A1", UnitPrice: decimal.NewFromFloat(4.0)},
	{Designation: "Impression affiche A2", UnitPrice: decimal.NewFromFloat(2.0)},
	{Designation: "Impression affiche A3", UnitPrice: decimal.NewFromFloat(1.0)},
	{Designation: "Impression sticker", UnitPrice: decimal.NewFromFloat(0.15)},
	{Designation: "Impression t-shirt", UnitPrice: decimal.NewFromFloat(6.0)},
}

// LineItem is one priced line of an invoice. All prices are pre-formatted
// strings: HT for the unit price, TTC for the line total. The club charges
// no tax, so both figures are numerically identical; the labels are a
// presentation convention.
type LineItem struct {
	Quantity    string
	Designation string
	UnitPrice   string
	LineTotal   string
}

// FormatPrice renders a price with a comma decimal separator and at least
// two decimals: 4 becomes "4,00€", 0.15 stays "0,15€".
func FormatPrice(p decimal.Decimal) string {
	var s string
	if p.Mul(decimal.NewFromInt(10)).IsInteger() {
		s = p.StringFixed(2)
	} else {
		s = p.String()
	}
	return strings.Replace(s, ".", ",", 1) + "€"
}

// BuildLineItems derives one line item per non-empty quantity slot, in the
// fixed slot order. An order with all slots empty yields no items and no
// error; it has no business reaching an invoice but must render anyway.
func BuildLineItems(o order.Order) ([]LineItem, error) {
	const op = "pricing.BuildLineItems"

	var items []LineItem
	for i, raw := range o.Quantities {
		if raw == "" {
			continue
		}
		qty, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: row %d, slot %s: %q: %w",
				op, o.Row, Services[i].Designation, raw, ErrBadQuantity)
		}
		lineTotal := Services[i].UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		items = append(items, LineItem{
			Quantity:    raw,
			Designation: Services[i].Designation,
			UnitPrice:   FormatPrice(Services[i].UnitPrice) + " HT",
			LineTotal:   FormatPrice(lineTotal) + " TTC",
		})
	}
	return items, nil
}

// GrandTotal returns the invoice total for an order. The sheet's own total
// is authoritative and passed through verbatim, never recomputed from the
// line items.
func GrandTotal(o order.Order) string {
	return o.TotalPrice + " TTC"
}

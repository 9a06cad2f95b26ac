// Package pricing computes order money values from cart lines.
//
// All functions are pure. Values are accumulated at full precision; rounding
// to cents happens once, when a value is persisted (see Round).
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/comanda-app/api/internal/enum"
)

// ErrInvalidQuantity is returned for a line or addon quantity below 1.
var ErrInvalidQuantity = errors.New("quantity must be > 0")

// AddonLine is an addon selected on a cart line.
type AddonLine struct {
	Price    decimal.Decimal
	Quantity int32
}

// Line is a single cart line.
type Line struct {
	BaseUnitPrice decimal.Decimal
	Quantity      int32
	Addons        []AddonLine
}

// Input is everything needed to price an order.
type Input struct {
	OrderType string
	Lines     []Line
	// RegionFee is the selected delivery region fee, nil when no region is set.
	RegionFee  *decimal.Decimal
	DefaultFee decimal.Decimal
}

// LineTotals is the priced form of a Line.
type LineTotals struct {
	UnitPrice decimal.Decimal // base + addons, per unit
	Total     decimal.Decimal
}

// Totals is the priced form of an order.
type Totals struct {
	Lines       []LineTotals
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// AddonsTotal returns Σ(addon.Price × addon.Quantity) for one unit of a line.
func AddonsTotal(addons []AddonLine) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range addons {
		sum = sum.Add(a.Price.Mul(decimal.NewFromInt32(a.Quantity)))
	}
	return sum
}

// LineUnitPrice returns base + Σ(addon price × addon quantity).
func LineUnitPrice(base decimal.Decimal, addons []AddonLine) decimal.Decimal {
	return base.Add(AddonsTotal(addons))
}

// PriceLine prices a single line.
func PriceLine(l Line) (LineTotals, error) {
	if l.Quantity <= 0 {
		return LineTotals{}, ErrInvalidQuantity
	}
	for _, a := range l.Addons {
		if a.Quantity <= 0 {
			return LineTotals{}, ErrInvalidQuantity
		}
	}
	unit := LineUnitPrice(l.BaseUnitPrice, l.Addons)
	return LineTotals{
		UnitPrice: unit,
		Total:     unit.Mul(decimal.NewFromInt32(l.Quantity)),
	}, nil
}

// DeliveryFee returns the fee for the order type. Non-delivery orders always
// pay nothing, whatever region was picked earlier.
func DeliveryFee(orderType string, regionFee *decimal.Decimal, defaultFee decimal.Decimal) decimal.Decimal {
	if orderType != enum.OrderTypeDelivery {
		return decimal.Zero
	}
	if regionFee != nil {
		return *regionFee
	}
	return defaultFee
}

// OrderTotal returns subtotal + deliveryFee - discount.
func OrderTotal(subtotal, deliveryFee, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(deliveryFee).Sub(discount)
}

// Calculate prices a whole order.
func Calculate(in Input) (Totals, error) {
	t := Totals{
		Lines:    make([]LineTotals, len(in.Lines)),
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
	}
	for i, l := range in.Lines {
		lt, err := PriceLine(l)
		if err != nil {
			return Totals{}, err
		}
		t.Lines[i] = lt
		t.Subtotal = t.Subtotal.Add(lt.Total)
	}
	t.DeliveryFee = DeliveryFee(in.OrderType, in.RegionFee, in.DefaultFee)
	t.Total = OrderTotal(t.Subtotal, t.DeliveryFee, t.Discount)
	return t, nil
}

// Round rounds half away from zero to 2 places. Use only on values about to be persisted.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Package draft turns a submitted order form and cart into an insert-ready
// order. It performs no I/O: callers resolve catalog rows first.
package draft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/pricing"
)

var (
	ErrEmptyCart          = errors.New("order must have at least one item")
	ErrInvalidQuantity    = pricing.ErrInvalidQuantity
	ErrProductUnavailable = errors.New("product is not available")
	ErrAddonUnavailable   = errors.New("addon is not available")
	ErrAddonNotApplicable = errors.New("addon does not apply to product")
	ErrDuplicateAddon     = errors.New("addon selected more than once")
	ErrRegionMismatch     = errors.New("delivery region does not match form")
)

// Product is the catalog row backing a cart line.
type Product struct {
	ID        uuid.UUID
	Price     decimal.Decimal
	Available bool
}

// Addon is the catalog row backing an addon selection. Applicable is true
// when the addon is global or linked to the line's product.
type Addon struct {
	ID         uuid.UUID
	Price      decimal.Decimal
	Available  bool
	Applicable bool
	MaxOptions *int32
}

// PaymentMethod is the resolved payment method.
type PaymentMethod struct {
	ID      uuid.UUID
	Enabled bool
}

// Region is the resolved delivery region.
type Region struct {
	ID  uuid.UUID
	Fee decimal.Decimal
}

// CartAddon is a requested addon with its quantity.
type CartAddon struct {
	Addon    Addon
	Quantity int32
}

// CartLine is a requested product line.
type CartLine struct {
	Product  Product
	Quantity int32
	Notes    string
	Addons   []CartAddon
}

// Input is everything Build needs.
type Input struct {
	Form               Form
	Cart               []CartLine
	PaymentMethod      PaymentMethod
	Region             *Region
	DefaultDeliveryFee decimal.Decimal
	PhoneCountryPrefix string
}

// Header is the orders row to insert, minus id and number.
type Header struct {
	CustomerName     string
	CustomerPhone    string
	OrderType        string
	Status           string
	PaymentMethodID  uuid.UUID
	PaymentStatus    string
	Subtotal         decimal.Decimal
	DeliveryFee      decimal.Decimal
	Discount         decimal.Decimal
	Total            decimal.Decimal
	DeliveryAddress  *string
	DeliveryRegionID *uuid.UUID
	DeliveryStatus   *string
	TableNumber      *string
	Notes            *string
}

// ItemAddon is an order_item_addons row.
type ItemAddon struct {
	AddonID    uuid.UUID
	Quantity   int32
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// Item is an order_items row with its addons.
type Item struct {
	ProductID  uuid.UUID
	Quantity   int32
	UnitPrice  decimal.Decimal // base product price
	TotalPrice decimal.Decimal // (base + addons) x quantity
	Notes      *string
	Addons     []ItemAddon
}

// Draft is a fully priced order ready for persistence.
type Draft struct {
	Header Header
	Items  []Item
}

// Build validates the form and cart and prices the order. Money values in
// the result are rounded to cents.
func Build(in Input) (*Draft, error) {
	if err := ValidateForm(in.Form); err != nil {
		return nil, err
	}
	if !in.PaymentMethod.Enabled || in.PaymentMethod.ID != in.Form.PaymentMethodID {
		return nil, &ValidationError{Fields: map[string]string{
			"payment_method_id": "payment method is not available",
		}}
	}
	if len(in.Cart) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]pricing.Line, len(in.Cart))
	for i, cl := range in.Cart {
		if cl.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if !cl.Product.Available {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrProductUnavailable)
		}

		var sel pricing.Selection
		for j, ca := range cl.Addons {
			if ca.Quantity <= 0 {
				return nil, fmt.Errorf("item[%d].addon[%d]: %w", i, j, ErrInvalidQuantity)
			}
			if !ca.Addon.Available {
				return nil, fmt.Errorf("item[%d].addon[%d]: %w", i, j, ErrAddonUnavailable)
			}
			if !ca.Addon.Applicable {
				return nil, fmt.Errorf("item[%d].addon[%d]: %w", i, j, ErrAddonNotApplicable)
			}
			if sel.Quantity(ca.Addon.ID) > 0 {
				return nil, fmt.Errorf("item[%d].addon[%d]: %w", i, j, ErrDuplicateAddon)
			}
			sel.Set(pricing.Addon{ID: ca.Addon.ID, Price: ca.Addon.Price, MaxOptions: ca.Addon.MaxOptions}, ca.Quantity)
		}

		lines[i] = pricing.Line{
			BaseUnitPrice: cl.Product.Price,
			Quantity:      cl.Quantity,
			Addons:        sel.Lines(),
		}
	}

	orderType := in.Form.Fulfillment.OrderType()
	var regionFee *decimal.Decimal
	if in.Region != nil {
		regionFee = &in.Region.Fee
	}

	totals, err := pricing.Calculate(pricing.Input{
		OrderType:  orderType,
		Lines:      lines,
		RegionFee:  regionFee,
		DefaultFee: in.DefaultDeliveryFee,
	})
	if err != nil {
		return nil, err
	}

	h := Header{
		CustomerName:    strings.TrimSpace(in.Form.CustomerName),
		CustomerPhone:   NormalizePhone(in.Form.CustomerPhone, in.PhoneCountryPrefix),
		OrderType:       orderType,
		Status:          enum.OrderStatusPending,
		PaymentMethodID: in.Form.PaymentMethodID,
		PaymentStatus:   enum.PaymentStatusPending,
		Subtotal:        pricing.Round(totals.Subtotal),
		DeliveryFee:     pricing.Round(totals.DeliveryFee),
		Discount:        pricing.Round(totals.Discount),
	}
	h.Total = pricing.OrderTotal(h.Subtotal, h.DeliveryFee, h.Discount)
	if notes := strings.TrimSpace(in.Form.Notes); notes != "" {
		h.Notes = &notes
	}

	switch f := in.Form.Fulfillment.(type) {
	case Delivery:
		addr := ComposeAddress(f.Address)
		status := enum.DeliveryStatusPending
		h.DeliveryAddress = &addr
		h.DeliveryStatus = &status
		if f.RegionID != uuid.Nil {
			if in.Region == nil || in.Region.ID != f.RegionID {
				return nil, ErrRegionMismatch
			}
			id := f.RegionID
			h.DeliveryRegionID = &id
		} else if in.Region != nil {
			return nil, ErrRegionMismatch
		}
	case InStore:
		table := strings.TrimSpace(f.TableNumber)
		h.TableNumber = &table
	case Takeaway:
	}

	items := make([]Item, len(in.Cart))
	for i, cl := range in.Cart {
		item := Item{
			ProductID:  cl.Product.ID,
			Quantity:   cl.Quantity,
			UnitPrice:  pricing.Round(cl.Product.Price),
			TotalPrice: pricing.Round(totals.Lines[i].Total),
		}
		if notes := strings.TrimSpace(cl.Notes); notes != "" {
			item.Notes = &notes
		}
		for _, ca := range cl.Addons {
			qty := pricing.ClampAddonQuantity(ca.Quantity, ca.Addon.MaxOptions)
			item.Addons = append(item.Addons, ItemAddon{
				AddonID:    ca.Addon.ID,
				Quantity:   qty,
				UnitPrice:  pricing.Round(ca.Addon.Price),
				TotalPrice: pricing.Round(ca.Addon.Price.Mul(decimal.NewFromInt32(qty))),
			})
		}
		items[i] = item
	}

	return &Draft{Header: h, Items: items}, nil
}

package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Addon is the selectable shape of a product addon.
type Addon struct {
	ID    uuid.UUID
	Price decimal.Decimal
	// MaxOptions caps the selectable quantity. nil means unlimited and 1 makes
	// the addon a boolean toggle.
	MaxOptions *int32
}

// Selected is an addon with its chosen quantity.
type Selected struct {
	Addon    Addon
	Quantity int32
}

// Selection is the ordered set of addons chosen for one cart line. It never
// holds an entry with quantity 0.
type Selection struct {
	items []Selected
}

// Items returns a copy of the selected addons in selection order.
func (s *Selection) Items() []Selected {
	out := make([]Selected, len(s.items))
	copy(out, s.items)
	return out
}

// Quantity returns the selected quantity of an addon, 0 if absent.
func (s *Selection) Quantity(id uuid.UUID) int32 {
	if i := s.index(id); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

// Increment adds one unit, bounded by the addon's MaxOptions. A boolean addon
// already selected stays at 1.
func (s *Selection) Increment(a Addon) {
	s.Set(a, s.Quantity(a.ID)+1)
}

// Decrement removes one unit; the addon leaves the selection at 0.
func (s *Selection) Decrement(a Addon) {
	s.Set(a, s.Quantity(a.ID)-1)
}

// Toggle flips a boolean addon between 0 and 1.
func (s *Selection) Toggle(a Addon) {
	if s.Quantity(a.ID) > 0 {
		s.Set(a, 0)
		return
	}
	s.Set(a, 1)
}

// Set stores a quantity after clamping it to the addon's bounds.
func (s *Selection) Set(a Addon, qty int32) {
	qty = ClampAddonQuantity(qty, a.MaxOptions)
	i := s.index(a.ID)
	switch {
	case qty == 0 && i >= 0:
		s.items = append(s.items[:i], s.items[i+1:]...)
	case qty == 0:
	case i >= 0:
		s.items[i] = Selected{Addon: a, Quantity: qty}
	default:
		s.items = append(s.items, Selected{Addon: a, Quantity: qty})
	}
}

// Lines converts the selection into priced addon lines.
func (s *Selection) Lines() []AddonLine {
	out := make([]AddonLine, len(s.items))
	for i, it := range s.items {
		out[i] = AddonLine{Price: it.Addon.Price, Quantity: it.Quantity}
	}
	return out
}

func (s *Selection) index(id uuid.UUID) int {
	for i, it := range s.items {
		if it.Addon.ID == id {
			return i
		}
	}
	return -1
}

// ClampAddonQuantity applies the MaxOptions rules to a requested quantity.
func ClampAddonQuantity(qty int32, maxOptions *int32) int32 {
	if qty <= 0 {
		return 0
	}
	if maxOptions == nil || *maxOptions <= 0 {
		return qty
	}
	if qty > *maxOptions {
		return *maxOptions
	}
	return qty
}

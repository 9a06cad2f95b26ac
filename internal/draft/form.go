package draft

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/comanda-app/api/internal/enum"
)

// Surfaces that submit orders. They differ only in validation strictness.
const (
	SurfaceCheckout = "checkout"
	SurfaceAdmin    = "admin"
)

// MinPhoneDigits is the minimum phone length after stripping non-digits.
const MinPhoneDigits = 10

// MinNameLength returns the minimum customer name length for a surface.
func MinNameLength(surface string) int {
	if surface == SurfaceAdmin {
		return 2
	}
	return 3
}

// Address is the structured delivery address captured by the forms.
type Address struct {
	Street       string
	Number       string
	Complement   string
	Neighborhood string
	Zip          string
}

// Fulfillment is one of Delivery, Takeaway or InStore.
type Fulfillment interface {
	OrderType() string
	isFulfillment()
}

// Delivery orders carry an address and optionally a region (uuid.Nil if none).
type Delivery struct {
	Address  Address
	RegionID uuid.UUID
}

// Takeaway orders carry no extra fields.
type Takeaway struct{}

// InStore orders are served at a table.
type InStore struct {
	TableNumber string
}

func (Delivery) OrderType() string { return enum.OrderTypeDelivery }
func (Takeaway) OrderType() string { return enum.OrderTypeTakeaway }
func (InStore) OrderType() string  { return enum.OrderTypeInStore }

func (Delivery) isFulfillment() {}
func (Takeaway) isFulfillment() {}
func (InStore) isFulfillment()  {}

// NewFulfillment maps a wire order type to its variant. Unknown types yield nil.
func NewFulfillment(orderType string, addr Address, regionID uuid.UUID, tableNumber string) Fulfillment {
	switch orderType {
	case enum.OrderTypeDelivery:
		return Delivery{Address: addr, RegionID: regionID}
	case enum.OrderTypeTakeaway:
		return Takeaway{}
	case enum.OrderTypeInStore:
		return InStore{TableNumber: tableNumber}
	}
	return nil
}

// Form is the validated shape of a checkout or PDV submission.
type Form struct {
	Surface         string
	CustomerName    string
	CustomerPhone   string
	PaymentMethodID uuid.UUID
	Notes           string
	Fulfillment     Fulfillment
}

// ValidationError carries per-field messages for inline display.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ValidateForm checks every rule that can be decided without I/O.
func ValidateForm(f Form) error {
	verr := &ValidationError{}

	minName := MinNameLength(f.Surface)
	if utf8.RuneCountInString(strings.TrimSpace(f.CustomerName)) < minName {
		verr.add("name", fmt.Sprintf("must have at least %d characters", minName))
	}

	if len(DigitsOnly(f.CustomerPhone)) < MinPhoneDigits {
		verr.add("phone", fmt.Sprintf("must have at least %d digits", MinPhoneDigits))
	}

	if f.PaymentMethodID == uuid.Nil {
		verr.add("payment_method_id", "is required")
	}

	switch ff := f.Fulfillment.(type) {
	case Delivery:
		a := ff.Address
		if strings.TrimSpace(a.Street) == "" {
			verr.add("address.street", "is required")
		}
		if strings.TrimSpace(a.Number) == "" {
			verr.add("address.number", "is required")
		}
		if strings.TrimSpace(a.Neighborhood) == "" {
			verr.add("address.neighborhood", "is required")
		}
		if strings.TrimSpace(a.Zip) == "" {
			verr.add("address.zip", "is required")
		}
	case InStore:
		if strings.TrimSpace(ff.TableNumber) == "" {
			verr.add("table_number", "is required")
		}
	case Takeaway:
	default:
		verr.add("order_type", "must be one of delivery, takeaway, instore")
	}

	return verr.orNil()
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone keeps digits and prepends the country prefix when the number
// is a local one (area code + subscriber, at most 11 digits).
func NormalizePhone(raw, countryPrefix string) string {
	digits := DigitsOnly(raw)
	if countryPrefix == "" || len(digits) > 11 {
		return digits
	}
	return countryPrefix + digits
}

// ComposeAddress renders the free-text address stored on the order.
func ComposeAddress(a Address) string {
	parts := []string{strings.TrimSpace(a.Street) + ", " + strings.TrimSpace(a.Number)}
	if c := strings.TrimSpace(a.Complement); c != "" {
		parts = append(parts, c)
	}
	parts = append(parts, strings.TrimSpace(a.Neighborhood), strings.TrimSpace(a.Zip))
	return strings.Join(parts, " - ")
}

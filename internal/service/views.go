package service

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/lifecycle"
)

// Read models served to the dashboards. They are cached as JSON, so money
// travels as 2-decimal strings.

type OrderView struct {
	ID                  uuid.UUID  `json:"id"`
	Number              string     `json:"number"`
	CustomerName        string     `json:"customer_name"`
	CustomerPhone       string     `json:"customer_phone"`
	OrderType           string     `json:"order_type"`
	Status              string     `json:"status"`
	PaymentMethodID     uuid.UUID  `json:"payment_method_id"`
	PaymentStatus       string     `json:"payment_status"`
	Subtotal            string     `json:"subtotal"`
	DeliveryFee         string     `json:"delivery_fee"`
	Discount            string     `json:"discount"`
	Total               string     `json:"total"`
	DeliveryAddress     *string    `json:"delivery_address"`
	DeliveryRegionID    *uuid.UUID `json:"delivery_region_id"`
	DeliveryDriverID    *uuid.UUID `json:"delivery_driver_id"`
	DeliveryStatus      *string    `json:"delivery_status"`
	DeliveryStartedAt   *time.Time `json:"delivery_started_at"`
	DeliveryCompletedAt *time.Time `json:"delivery_completed_at"`
	TableNumber         *string    `json:"table_number"`
	Notes               *string    `json:"notes"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type OrderItemAddonView struct {
	ID         uuid.UUID `json:"id"`
	AddonID    uuid.UUID `json:"addon_id"`
	Name       string    `json:"name"`
	Quantity   int32     `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	TotalPrice string    `json:"total_price"`
}

type OrderItemView struct {
	ID          uuid.UUID            `json:"id"`
	ProductID   uuid.UUID            `json:"product_id"`
	ProductName string               `json:"product_name"`
	Quantity    int32                `json:"quantity"`
	UnitPrice   string               `json:"unit_price"`
	TotalPrice  string               `json:"total_price"`
	Notes       *string              `json:"notes"`
	Addons      []OrderItemAddonView `json:"addons"`
}

// OrderDetail is an order with its items and addon lines.
type OrderDetail struct {
	OrderView
	Items []OrderItemView `json:"items"`
}

// OrderPage is one page of the orders table.
type OrderPage struct {
	Orders          []OrderView `json:"orders"`
	Total           int64       `json:"total"`
	Page            int         `json:"page"`
	Limit           int         `json:"limit"`
	HasNextPage     bool        `json:"has_next_page"`
	HasPreviousPage bool        `json:"has_previous_page"`
}

type KanbanCard struct {
	ID           uuid.UUID `json:"id"`
	Number       string    `json:"number"`
	CustomerName string    `json:"customer_name"`
	OrderType    string    `json:"order_type"`
	Status       string    `json:"status"`
	Total        string    `json:"total"`
	TableNumber  *string   `json:"table_number"`
	CreatedAt    time.Time `json:"created_at"`
}

// KanbanBoard holds the live kitchen columns, oldest order first.
type KanbanBoard struct {
	Pending   []KanbanCard `json:"pending"`
	Preparing []KanbanCard `json:"preparing"`
	Ready     []KanbanCard `json:"ready"`
}

// DeliveryView is a delivery order with its region and driver names.
type DeliveryView struct {
	OrderView
	RegionName *string `json:"region_name"`
	DriverName *string `json:"driver_name"`
}

// TrackerView is the customer-facing order status.
type TrackerView struct {
	Number              string    `json:"number"`
	Status              string    `json:"status"`
	Stage               string    `json:"stage"`
	OrderType           string    `json:"order_type"`
	Total               string    `json:"total"`
	CreatedAt           time.Time `json:"created_at"`
	PollIntervalSeconds int       `json:"poll_interval_seconds"`
}

func toOrderView(o database.Order) OrderView {
	v := OrderView{
		ID:               o.ID,
		Number:           o.Number,
		CustomerName:     o.CustomerName,
		CustomerPhone:    o.CustomerPhone,
		OrderType:        o.OrderType,
		Status:           o.Status,
		PaymentMethodID:  o.PaymentMethodID,
		PaymentStatus:    o.PaymentStatus,
		Subtotal:         money(o.Subtotal),
		DeliveryFee:      money(o.DeliveryFee),
		Discount:         money(o.Discount),
		Total:            money(o.Total),
		DeliveryAddress:  optionalString(o.DeliveryAddress),
		DeliveryRegionID: optionalUUID(o.DeliveryRegionID),
		DeliveryDriverID: optionalUUID(o.DeliveryDriverID),
		DeliveryStatus:   optionalString(o.DeliveryStatus),
		TableNumber:      optionalString(o.TableNumber),
		Notes:            optionalString(o.Notes),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	if o.DeliveryStartedAt.Valid {
		t := o.DeliveryStartedAt.Time
		v.DeliveryStartedAt = &t
	}
	if o.DeliveryCompletedAt.Valid {
		t := o.DeliveryCompletedAt.Time
		v.DeliveryCompletedAt = &t
	}
	return v
}

func toKanbanCard(o database.Order) KanbanCard {
	return KanbanCard{
		ID:           o.ID,
		Number:       o.Number,
		CustomerName: o.CustomerName,
		OrderType:    o.OrderType,
		Status:       o.Status,
		Total:        money(o.Total),
		TableNumber:  optionalString(o.TableNumber),
		CreatedAt:    o.CreatedAt,
	}
}

func newKanbanBoard(orders []database.Order) KanbanBoard {
	b := KanbanBoard{
		Pending:   []KanbanCard{},
		Preparing: []KanbanCard{},
		Ready:     []KanbanCard{},
	}
	for _, o := range orders {
		col := b.column(o.Status)
		if col != nil {
			*col = append(*col, toKanbanCard(o))
		}
	}
	return b
}

func (b *KanbanBoard) column(status string) *[]KanbanCard {
	switch status {
	case enum.OrderStatusPending:
		return &b.Pending
	case enum.OrderStatusPreparing:
		return &b.Preparing
	case enum.OrderStatusReady:
		return &b.Ready
	}
	return nil
}

// Move returns a copy of the board with the card moved to the column of
// status. Statuses outside the board take the card off it. The receiver is
// never modified.
func (b KanbanBoard) Move(id uuid.UUID, status string) KanbanBoard {
	var card *KanbanCard
	out := KanbanBoard{}
	for _, st := range lifecycle.KanbanStatuses {
		src := *b.column(st)
		dst := make([]KanbanCard, 0, len(src))
		for _, c := range src {
			if c.ID == id {
				c := c
				card = &c
				continue
			}
			dst = append(dst, c)
		}
		*out.column(st) = dst
	}
	if card == nil {
		return out
	}

	col := out.column(status)
	if col == nil {
		return out
	}
	card.Status = status
	*col = append(*col, *card)
	sort.SliceStable(*col, func(i, j int) bool {
		return (*col)[i].CreatedAt.Before((*col)[j].CreatedAt)
	})
	return out
}

package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Admin struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type DeliveryRegion struct {
	ID        uuid.UUID
	Name      string
	Fee       pgtype.Numeric
	CreatedAt time.Time
}

type Driver struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID                  uuid.UUID
	Number              string
	CustomerName        string
	CustomerPhone       string
	OrderType           string
	Status              string
	PaymentMethodID     uuid.UUID
	PaymentStatus       string
	Subtotal            pgtype.Numeric
	DeliveryFee         pgtype.Numeric
	Discount            pgtype.Numeric
	Total               pgtype.Numeric
	DeliveryAddress     pgtype.Text
	DeliveryRegionID    pgtype.UUID
	DeliveryDriverID    pgtype.UUID
	DeliveryStatus      pgtype.Text
	DeliveryStartedAt   pgtype.Timestamptz
	DeliveryCompletedAt pgtype.Timestamptz
	TableNumber         pgtype.Text
	Notes               pgtype.Text
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ProductID  uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	Notes      pgtype.Text
	CreatedAt  time.Time
}

type OrderItemAddon struct {
	ID          uuid.UUID
	OrderItemID uuid.UUID
	AddonID     uuid.UUID
	Quantity    int32
	UnitPrice   pgtype.Numeric
	TotalPrice  pgtype.Numeric
}

type PaymentMethod struct {
	ID           uuid.UUID
	Name         string
	Icon         pgtype.Text
	Enabled      bool
	DisplayOrder int32
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Category    string
	Price       pgtype.Numeric
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProductAddon struct {
	ID         uuid.UUID
	Name       string
	Price      pgtype.Numeric
	Available  bool
	IsGlobal   bool
	MaxOptions pgtype.Int4
	CreatedAt  time.Time
}

type ProductAddonLink struct {
	ProductID uuid.UUID
	AddonID   uuid.UUID
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listDeliveryOrders = `-- name: ListDeliveryOrders :many
SELECT o.id, o.number, o.customer_name, o.customer_phone, o.order_type, o.status,
       o.payment_method_id, o.payment_status, o.subtotal, o.delivery_fee, o.discount, o.total,
       o.delivery_address, o.delivery_region_id, o.delivery_driver_id, o.delivery_status,
       o.delivery_started_at, o.delivery_completed_at, o.table_number, o.notes, o.created_at, o.updated_at,
       r.name AS region_name, d.name AS driver_name
FROM orders o
LEFT JOIN delivery_regions r ON r.id = o.delivery_region_id
LEFT JOIN drivers d ON d.id = o.delivery_driver_id
WHERE o.order_type = 'delivery'
  AND o.number NOT LIKE 'DELETED\_%'
  AND o.status <> 'canceled'
  AND ($1::text IS NULL OR o.delivery_status = $1::text)
ORDER BY o.created_at DESC
LIMIT $2`

type ListDeliveryOrdersParams struct {
	DeliveryStatus pgtype.Text
	Limit          int32
}

type ListDeliveryOrdersRow struct {
	Order
	RegionName pgtype.Text
	DriverName pgtype.Text
}

func (q *Queries) ListDeliveryOrders(ctx context.Context, arg ListDeliveryOrdersParams) ([]ListDeliveryOrdersRow, error) {
	rows, err := q.db.Query(ctx, listDeliveryOrders, arg.DeliveryStatus, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListDeliveryOrdersRow
	for rows.Next() {
		var i ListDeliveryOrdersRow
		if err := rows.Scan(
			&i.ID,
			&i.Number,
			&i.CustomerName,
			&i.CustomerPhone,
			&i.OrderType,
			&i.Status,
			&i.PaymentMethodID,
			&i.PaymentStatus,
			&i.Subtotal,
			&i.DeliveryFee,
			&i.Discount,
			&i.Total,
			&i.DeliveryAddress,
			&i.DeliveryRegionID,
			&i.DeliveryDriverID,
			&i.DeliveryStatus,
			&i.DeliveryStartedAt,
			&i.DeliveryCompletedAt,
			&i.TableNumber,
			&i.Notes,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.RegionName,
			&i.DriverName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setOrderRegion = `-- name: SetOrderRegion :one
UPDATE orders SET
    delivery_region_id = $2,
    delivery_fee = $3,
    total = $4,
    updated_at = now()
WHERE id = $1 AND ` + notDeleted + `
RETURNING ` + orderColumns

type SetOrderRegionParams struct {
	ID          uuid.UUID
	RegionID    uuid.UUID
	DeliveryFee pgtype.Numeric
	Total       pgtype.Numeric
}

func (q *Queries) SetOrderRegion(ctx context.Context, arg SetOrderRegionParams) (Order, error) {
	row := q.db.QueryRow(ctx, setOrderRegion, arg.ID, arg.RegionID, arg.DeliveryFee, arg.Total)
	return scanOrder(row)
}

const startOrderDelivery = `-- name: StartOrderDelivery :one
UPDATE orders SET
    delivery_driver_id = $2,
    delivery_status = 'in_progress',
    delivery_started_at = now(),
    updated_at = now()
WHERE id = $1 AND delivery_status = 'pending' AND ` + notDeleted + `
RETURNING ` + orderColumns

type StartOrderDeliveryParams struct {
	ID       uuid.UUID
	DriverID uuid.UUID
}

func (q *Queries) StartOrderDelivery(ctx context.Context, arg StartOrderDeliveryParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, startOrderDelivery, arg.ID, arg.DriverID))
}

const completeOrderDelivery = `-- name: CompleteOrderDelivery :one
UPDATE orders SET
    delivery_status = 'completed',
    delivery_completed_at = now(),
    status = 'delivered',
    updated_at = now()
WHERE id = $1 AND delivery_status = 'in_progress' AND ` + notDeleted + `
RETURNING ` + orderColumns

func (q *Queries) CompleteOrderDelivery(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, completeOrderDelivery, id))
}

const listDrivers = `-- name: ListDrivers :many
SELECT id, name, phone, status, created_at, updated_at FROM drivers
ORDER BY name`

func (q *Queries) ListDrivers(ctx context.Context) ([]Driver, error) {
	rows, err := q.db.Query(ctx, listDrivers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Driver
	for rows.Next() {
		var i Driver
		if err := rows.Scan(&i.ID, &i.Name, &i.Phone, &i.Status, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDriver = `-- name: GetDriver :one
SELECT id, name, phone, status, created_at, updated_at FROM drivers
WHERE id = $1`

func (q *Queries) GetDriver(ctx context.Context, id uuid.UUID) (Driver, error) {
	row := q.db.QueryRow(ctx, getDriver, id)
	var i Driver
	err := row.Scan(&i.ID, &i.Name, &i.Phone, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getDriverForUpdate = `-- name: GetDriverForUpdate :one
SELECT id, name, phone, status, created_at, updated_at FROM drivers
WHERE id = $1
FOR UPDATE`

// GetDriverForUpdate locks the driver row so two assignments cannot both see it available.
func (q *Queries) GetDriverForUpdate(ctx context.Context, id uuid.UUID) (Driver, error) {
	row := q.db.QueryRow(ctx, getDriverForUpdate, id)
	var i Driver
	err := row.Scan(&i.ID, &i.Name, &i.Phone, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const setDriverStatus = `-- name: SetDriverStatus :one
UPDATE drivers SET status = $2, updated_at = now()
WHERE id = $1
RETURNING id, name, phone, status, created_at, updated_at`

type SetDriverStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) SetDriverStatus(ctx context.Context, arg SetDriverStatusParams) (Driver, error) {
	row := q.db.QueryRow(ctx, setDriverStatus, arg.ID, arg.Status)
	var i Driver
	err := row.Scan(&i.ID, &i.Name, &i.Phone, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createDriver = `-- name: CreateDriver :one
INSERT INTO drivers (name, phone) VALUES ($1, $2)
ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name, phone, status, created_at, updated_at`

type CreateDriverParams struct {
	Name  string
	Phone string
}

func (q *Queries) CreateDriver(ctx context.Context, arg CreateDriverParams) (Driver, error) {
	row := q.db.QueryRow(ctx, createDriver, arg.Name, arg.Phone)
	var i Driver
	err := row.Scan(&i.ID, &i.Name, &i.Phone, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, number, customer_name, customer_phone, order_type, status,
	payment_method_id, payment_status, subtotal, delivery_fee, discount, total,
	delivery_address, delivery_region_id, delivery_driver_id, delivery_status,
	delivery_started_at, delivery_completed_at, table_number, notes, created_at, updated_at`

// notDeleted is appended to every query that lists, counts or reads live orders.
const notDeleted = `number NOT LIKE 'DELETED\_%'`

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	err := row.Scan(
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
	)
	return i, err
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const nextOrderNumber = `-- name: NextOrderNumber :one
UPDATE order_counters SET last_number = last_number + 1 WHERE id = 1
RETURNING last_number`

// NextOrderNumber atomically reserves the next sequential order number.
func (q *Queries) NextOrderNumber(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, nextOrderNumber)
	var lastNumber int64
	err := row.Scan(&lastNumber)
	return lastNumber, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    number, customer_name, customer_phone, order_type, status,
    payment_method_id, payment_status, subtotal, delivery_fee, discount, total,
    delivery_address, delivery_region_id, delivery_status, table_number, notes
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	Number           string
	CustomerName     string
	CustomerPhone    string
	OrderType        string
	Status           string
	PaymentMethodID  uuid.UUID
	PaymentStatus    string
	Subtotal         pgtype.Numeric
	DeliveryFee      pgtype.Numeric
	Discount         pgtype.Numeric
	Total            pgtype.Numeric
	DeliveryAddress  pgtype.Text
	DeliveryRegionID pgtype.UUID
	DeliveryStatus   pgtype.Text
	TableNumber      pgtype.Text
	Notes            pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.Number,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.OrderType,
		arg.Status,
		arg.PaymentMethodID,
		arg.PaymentStatus,
		arg.Subtotal,
		arg.DeliveryFee,
		arg.Discount,
		arg.Total,
		arg.DeliveryAddress,
		arg.DeliveryRegionID,
		arg.DeliveryStatus,
		arg.TableNumber,
		arg.Notes,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, product_id, quantity, unit_price, total_price, notes, created_at`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	ProductID  uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	Notes      pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalPrice,
		arg.Notes,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalPrice,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}

const createOrderItemAddon = `-- name: CreateOrderItemAddon :one
INSERT INTO order_item_addons (order_item_id, addon_id, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_item_id, addon_id, quantity, unit_price, total_price`

type CreateOrderItemAddonParams struct {
	OrderItemID uuid.UUID
	AddonID     uuid.UUID
	Quantity    int32
	UnitPrice   pgtype.Numeric
	TotalPrice  pgtype.Numeric
}

func (q *Queries) CreateOrderItemAddon(ctx context.Context, arg CreateOrderItemAddonParams) (OrderItemAddon, error) {
	row := q.db.QueryRow(ctx, createOrderItemAddon,
		arg.OrderItemID,
		arg.AddonID,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalPrice,
	)
	var i OrderItemAddon
	err := row.Scan(
		&i.ID,
		&i.OrderItemID,
		&i.AddonID,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalPrice,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND ` + notDeleted

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND ` + notDeleted + `
FOR UPDATE`

// GetOrderForUpdate locks the order row until the surrounding tx ends.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const getOrderByNumber = `-- name: GetOrderByNumber :one
SELECT ` + orderColumns + ` FROM orders
WHERE number = $1 AND ` + notDeleted

func (q *Queries) GetOrderByNumber(ctx context.Context, number string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNumber, number))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ` + notDeleted + `
  AND ($1::text IS NULL OR status = $1::text)
  AND ($2::text IS NULL
       OR number ILIKE '%' || $2::text || '%'
       OR customer_name ILIKE '%' || $2::text || '%'
       OR customer_phone ILIKE '%' || $2::text || '%')
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

type ListOrdersParams struct {
	Status pgtype.Text
	Search pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

const countOrders = `-- name: CountOrders :one
SELECT count(*) FROM orders
WHERE ` + notDeleted + `
  AND ($1::text IS NULL OR status = $1::text)
  AND ($2::text IS NULL
       OR number ILIKE '%' || $2::text || '%'
       OR customer_name ILIKE '%' || $2::text || '%'
       OR customer_phone ILIKE '%' || $2::text || '%')`

type CountOrdersParams struct {
	Status pgtype.Text
	Search pgtype.Text
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	row := q.db.QueryRow(ctx, countOrders, arg.Status, arg.Search)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listKanbanOrders = `-- name: ListKanbanOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ` + notDeleted + `
  AND status IN ('pending', 'preparing', 'ready')
ORDER BY created_at ASC`

func (q *Queries) ListKanbanOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listKanbanOrders)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price, oi.total_price,
       oi.notes, oi.created_at, p.name AS product_name
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = $1
ORDER BY oi.created_at, oi.id`

type ListOrderItemsByOrderRow struct {
	OrderItem
	ProductName string
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderItemsByOrderRow
	for rows.Next() {
		var i ListOrderItemsByOrderRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.ProductID,
			&i.Quantity,
			&i.UnitPrice,
			&i.TotalPrice,
			&i.Notes,
			&i.CreatedAt,
			&i.ProductName,
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

const listOrderItemAddonsByOrder = `-- name: ListOrderItemAddonsByOrder :many
SELECT a.id, a.order_item_id, a.addon_id, a.quantity, a.unit_price, a.total_price,
       pa.name AS addon_name
FROM order_item_addons a
JOIN order_items oi ON oi.id = a.order_item_id
JOIN product_addons pa ON pa.id = a.addon_id
WHERE oi.order_id = $1
ORDER BY a.order_item_id, pa.name`

type ListOrderItemAddonsByOrderRow struct {
	OrderItemAddon
	AddonName string
}

func (q *Queries) ListOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemAddonsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemAddonsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderItemAddonsByOrderRow
	for rows.Next() {
		var i ListOrderItemAddonsByOrderRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderItemID,
			&i.AddonID,
			&i.Quantity,
			&i.UnitPrice,
			&i.TotalPrice,
			&i.AddonName,
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

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3 AND ` + notDeleted + `
RETURNING ` + orderColumns

// UpdateOrderStatusParams: Status_2 is the status the caller last read. The
// update matches no row if another writer changed it first.
type UpdateOrderStatusParams struct {
	ID       uuid.UUID
	Status   string
	Status_2 string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.Status_2))
}

const updateOrder = `-- name: UpdateOrder :one
UPDATE orders SET
    customer_name     = COALESCE($2, customer_name),
    customer_phone    = COALESCE($3, customer_phone),
    notes             = COALESCE($4, notes),
    table_number      = COALESCE($5, table_number),
    delivery_address  = COALESCE($6, delivery_address),
    payment_method_id = COALESCE($7, payment_method_id),
    payment_status    = COALESCE($8, payment_status),
    updated_at        = now()
WHERE id = $1 AND ` + notDeleted + `
RETURNING ` + orderColumns

// UpdateOrderParams: invalid (NULL) fields keep their stored value.
type UpdateOrderParams struct {
	ID              uuid.UUID
	CustomerName    pgtype.Text
	CustomerPhone   pgtype.Text
	Notes           pgtype.Text
	TableNumber     pgtype.Text
	DeliveryAddress pgtype.Text
	PaymentMethodID pgtype.UUID
	PaymentStatus   pgtype.Text
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrder,
		arg.ID,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.Notes,
		arg.TableNumber,
		arg.DeliveryAddress,
		arg.PaymentMethodID,
		arg.PaymentStatus,
	)
	return scanOrder(row)
}

const softDeleteOrder = `-- name: SoftDeleteOrder :one
UPDATE orders SET number = 'DELETED_' || number, updated_at = now()
WHERE id = $1 AND ` + notDeleted + `
RETURNING ` + orderColumns

func (q *Queries) SoftDeleteOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, softDeleteOrder, id))
}

const deleteOrderItemAddonsByOrder = `-- name: DeleteOrderItemAddonsByOrder :exec
DELETE FROM order_item_addons
WHERE order_item_id IN (SELECT id FROM order_items WHERE order_id = $1)`

func (q *Queries) DeleteOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItemAddonsByOrder, orderID)
	return err
}

const deleteOrderItemsByOrder = `-- name: DeleteOrderItemsByOrder :exec
DELETE FROM order_items WHERE order_id = $1`

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItemsByOrder, orderID)
	return err
}

const deleteOrder = `-- name: DeleteOrder :one
DELETE FROM orders WHERE id = $1
RETURNING ` + orderColumns

// DeleteOrder removes the order row, soft-deleted or not.
func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, deleteOrder, id))
}

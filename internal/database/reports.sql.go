package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Revenue reports count live, non-canceled orders only.
const reportableOrder = `o.number NOT LIKE 'DELETED\_%' AND o.status <> 'canceled'`

const getDashboardStats = `-- name: GetDashboardStats :one
SELECT
    count(*) FILTER (WHERE o.number NOT LIKE 'DELETED\_%')                                   AS total_orders,
    count(*) FILTER (WHERE o.number NOT LIKE 'DELETED\_%' AND o.status = 'pending')          AS pending_orders,
    count(*) FILTER (WHERE o.number NOT LIKE 'DELETED\_%' AND o.status = 'preparing')        AS preparing_orders,
    count(*) FILTER (WHERE o.number NOT LIKE 'DELETED\_%' AND o.status = 'ready')            AS ready_orders,
    count(*) FILTER (WHERE o.number NOT LIKE 'DELETED\_%' AND o.status = 'out_for_delivery') AS out_for_delivery_orders,
    count(*) FILTER (WHERE o.number NOT LIKE 'DELETED\_%' AND o.status IN ('delivered', 'completed')) AS finished_orders,
    count(*) FILTER (WHERE o.number NOT LIKE 'DELETED\_%' AND o.status = 'canceled')         AS canceled_orders,
    COALESCE(sum(o.total) FILTER (WHERE ` + reportableOrder + `), 0)::numeric(12,2)          AS revenue,
    COALESCE(avg(o.total) FILTER (WHERE ` + reportableOrder + `), 0)::numeric(12,2)          AS average_ticket,
    count(*) FILTER (WHERE o.number NOT LIKE 'DELETED\_%' AND o.delivery_status = 'in_progress') AS active_deliveries
FROM orders o
WHERE o.created_at >= $1 AND o.created_at < $2`

type GetDashboardStatsParams struct {
	CreatedAt   time.Time
	CreatedAt_2 time.Time
}

type GetDashboardStatsRow struct {
	TotalOrders          int64
	PendingOrders        int64
	PreparingOrders      int64
	ReadyOrders          int64
	OutForDeliveryOrders int64
	FinishedOrders       int64
	CanceledOrders       int64
	Revenue              pgtype.Numeric
	AverageTicket        pgtype.Numeric
	ActiveDeliveries     int64
}

func (q *Queries) GetDashboardStats(ctx context.Context, arg GetDashboardStatsParams) (GetDashboardStatsRow, error) {
	row := q.db.QueryRow(ctx, getDashboardStats, arg.CreatedAt, arg.CreatedAt_2)
	var i GetDashboardStatsRow
	err := row.Scan(
		&i.TotalOrders,
		&i.PendingOrders,
		&i.PreparingOrders,
		&i.ReadyOrders,
		&i.OutForDeliveryOrders,
		&i.FinishedOrders,
		&i.CanceledOrders,
		&i.Revenue,
		&i.AverageTicket,
		&i.ActiveDeliveries,
	)
	return i, err
}

const getDailySales = `-- name: GetDailySales :many
SELECT
    (o.created_at AT TIME ZONE $3::text)::date AS sale_date,
    count(*)                                   AS order_count,
    COALESCE(sum(o.total), 0)::numeric(12,2)        AS total_revenue,
    COALESCE(sum(o.delivery_fee), 0)::numeric(12,2) AS total_delivery_fees,
    COALESCE(sum(o.subtotal), 0)::numeric(12,2)     AS net_revenue
FROM orders o
WHERE ` + reportableOrder + `
  AND o.created_at >= $1 AND o.created_at < $2
GROUP BY sale_date
ORDER BY sale_date`

type GetDailySalesParams struct {
	CreatedAt   time.Time
	CreatedAt_2 time.Time
	TimeZone    string
}

type GetDailySalesRow struct {
	SaleDate          pgtype.Date
	OrderCount        int64
	TotalRevenue      pgtype.Numeric
	TotalDeliveryFees pgtype.Numeric
	NetRevenue        pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.CreatedAt, arg.CreatedAt_2, arg.TimeZone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetDailySalesRow
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(
			&i.SaleDate,
			&i.OrderCount,
			&i.TotalRevenue,
			&i.TotalDeliveryFees,
			&i.NetRevenue,
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

const getProductSales = `-- name: GetProductSales :many
SELECT
    p.id                                         AS product_id,
    p.name                                       AS product_name,
    COALESCE(sum(oi.quantity), 0)::bigint        AS quantity_sold,
    COALESCE(sum(oi.total_price), 0)::numeric(12,2) AS total_revenue
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN products p ON p.id = oi.product_id
WHERE ` + reportableOrder + `
  AND o.created_at >= $1 AND o.created_at < $2
GROUP BY p.id, p.name
ORDER BY quantity_sold DESC, total_revenue DESC
LIMIT $3`

type GetProductSalesParams struct {
	CreatedAt   time.Time
	CreatedAt_2 time.Time
	Limit       int32
}

type GetProductSalesRow struct {
	ProductID    uuid.UUID
	ProductName  string
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetProductSales(ctx context.Context, arg GetProductSalesParams) ([]GetProductSalesRow, error) {
	rows, err := q.db.Query(ctx, getProductSales, arg.CreatedAt, arg.CreatedAt_2, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetProductSalesRow
	for rows.Next() {
		var i GetProductSalesRow
		if err := rows.Scan(
			&i.ProductID,
			&i.ProductName,
			&i.QuantitySold,
			&i.TotalRevenue,
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

const getPaymentSummary = `-- name: GetPaymentSummary :many
SELECT
    pm.name                                  AS payment_method,
    count(*)                                 AS order_count,
    COALESCE(sum(o.total), 0)::numeric(12,2) AS total_amount
FROM orders o
JOIN payment_methods pm ON pm.id = o.payment_method_id
WHERE ` + reportableOrder + `
  AND o.created_at >= $1 AND o.created_at < $2
GROUP BY pm.name
ORDER BY total_amount DESC`

type GetPaymentSummaryParams struct {
	CreatedAt   time.Time
	CreatedAt_2 time.Time
}

type GetPaymentSummaryRow struct {
	PaymentMethod string
	OrderCount    int64
	TotalAmount   pgtype.Numeric
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg GetPaymentSummaryParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentSummary, arg.CreatedAt, arg.CreatedAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetPaymentSummaryRow
	for rows.Next() {
		var i GetPaymentSummaryRow
		if err := rows.Scan(&i.PaymentMethod, &i.OrderCount, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

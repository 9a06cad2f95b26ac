package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getProductForOrder = `-- name: GetProductForOrder :one
SELECT id, price, available FROM products
WHERE id = $1`

type GetProductForOrderRow struct {
	ID        uuid.UUID
	Price     pgtype.Numeric
	Available bool
}

func (q *Queries) GetProductForOrder(ctx context.Context, id uuid.UUID) (GetProductForOrderRow, error) {
	row := q.db.QueryRow(ctx, getProductForOrder, id)
	var i GetProductForOrderRow
	err := row.Scan(&i.ID, &i.Price, &i.Available)
	return i, err
}

const getAddonForOrder = `-- name: GetAddonForOrder :one
SELECT a.id, a.price, a.available, a.max_options,
       (a.is_global OR EXISTS (
           SELECT 1 FROM product_addon_links l
           WHERE l.addon_id = a.id AND l.product_id = $2
       )) AS applicable
FROM product_addons a
WHERE a.id = $1`

type GetAddonForOrderParams struct {
	ID        uuid.UUID
	ProductID uuid.UUID
}

type GetAddonForOrderRow struct {
	ID         uuid.UUID
	Price      pgtype.Numeric
	Available  bool
	MaxOptions pgtype.Int4
	Applicable bool
}

func (q *Queries) GetAddonForOrder(ctx context.Context, arg GetAddonForOrderParams) (GetAddonForOrderRow, error) {
	row := q.db.QueryRow(ctx, getAddonForOrder, arg.ID, arg.ProductID)
	var i GetAddonForOrderRow
	err := row.Scan(&i.ID, &i.Price, &i.Available, &i.MaxOptions, &i.Applicable)
	return i, err
}

const listAvailableProducts = `-- name: ListAvailableProducts :many
SELECT id, name, description, category, price, available, created_at, updated_at
FROM products
WHERE available = true
ORDER BY category, name`

func (q *Queries) ListAvailableProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listAvailableProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var i Product
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.Category,
			&i.Price,
			&i.Available,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (name, description, category, price)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price
RETURNING id, name, description, category, price, available, created_at, updated_at`

type CreateProductParams struct {
	Name        string
	Description pgtype.Text
	Category    string
	Price       pgtype.Numeric
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.Name, arg.Description, arg.Category, arg.Price)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Category,
		&i.Price,
		&i.Available,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const addonColumns = `id, name, price, available, is_global, max_options, created_at`

func scanAddon(row interface{ Scan(...any) error }) (ProductAddon, error) {
	var i ProductAddon
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.Available,
		&i.IsGlobal,
		&i.MaxOptions,
		&i.CreatedAt,
	)
	return i, err
}

const listAddons = `-- name: ListAddons :many
SELECT ` + addonColumns + ` FROM product_addons
ORDER BY name`

func (q *Queries) ListAddons(ctx context.Context) ([]ProductAddon, error) {
	rows, err := q.db.Query(ctx, listAddons)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProductAddon
	for rows.Next() {
		i, err := scanAddon(rows)
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

const listProductAddonLinks = `-- name: ListProductAddonLinks :many
SELECT product_id, addon_id FROM product_addon_links`

func (q *Queries) ListProductAddonLinks(ctx context.Context) ([]ProductAddonLink, error) {
	rows, err := q.db.Query(ctx, listProductAddonLinks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProductAddonLink
	for rows.Next() {
		var i ProductAddonLink
		if err := rows.Scan(&i.ProductID, &i.AddonID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createAddon = `-- name: CreateAddon :one
INSERT INTO product_addons (name, price, is_global, max_options)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price
RETURNING ` + addonColumns

type CreateAddonParams struct {
	Name       string
	Price      pgtype.Numeric
	IsGlobal   bool
	MaxOptions pgtype.Int4
}

func (q *Queries) CreateAddon(ctx context.Context, arg CreateAddonParams) (ProductAddon, error) {
	return scanAddon(q.db.QueryRow(ctx, createAddon, arg.Name, arg.Price, arg.IsGlobal, arg.MaxOptions))
}

const linkAddonToProduct = `-- name: LinkAddonToProduct :exec
INSERT INTO product_addon_links (product_id, addon_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`

type LinkAddonToProductParams struct {
	ProductID uuid.UUID
	AddonID   uuid.UUID
}

func (q *Queries) LinkAddonToProduct(ctx context.Context, arg LinkAddonToProductParams) error {
	_, err := q.db.Exec(ctx, linkAddonToProduct, arg.ProductID, arg.AddonID)
	return err
}

const countAddonLinks = `-- name: CountAddonLinks :one
SELECT count(*) FROM product_addon_links WHERE addon_id = $1`

func (q *Queries) CountAddonLinks(ctx context.Context, addonID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countAddonLinks, addonID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteAddon = `-- name: DeleteAddon :execrows
DELETE FROM product_addons WHERE id = $1`

func (q *Queries) DeleteAddon(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteAddon, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const paymentMethodColumns = `id, name, icon, enabled, display_order`

const getPaymentMethod = `-- name: GetPaymentMethod :one
SELECT ` + paymentMethodColumns + ` FROM payment_methods
WHERE id = $1`

func (q *Queries) GetPaymentMethod(ctx context.Context, id uuid.UUID) (PaymentMethod, error) {
	row := q.db.QueryRow(ctx, getPaymentMethod, id)
	var i PaymentMethod
	err := row.Scan(&i.ID, &i.Name, &i.Icon, &i.Enabled, &i.DisplayOrder)
	return i, err
}

const listEnabledPaymentMethods = `-- name: ListEnabledPaymentMethods :many
SELECT ` + paymentMethodColumns + ` FROM payment_methods
WHERE enabled = true
ORDER BY display_order, name`

func (q *Queries) ListEnabledPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	rows, err := q.db.Query(ctx, listEnabledPaymentMethods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentMethod
	for rows.Next() {
		var i PaymentMethod
		if err := rows.Scan(&i.ID, &i.Name, &i.Icon, &i.Enabled, &i.DisplayOrder); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPaymentMethod = `-- name: CreatePaymentMethod :one
INSERT INTO payment_methods (name, icon, display_order)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET display_order = EXCLUDED.display_order
RETURNING ` + paymentMethodColumns

type CreatePaymentMethodParams struct {
	Name         string
	Icon         pgtype.Text
	DisplayOrder int32
}

func (q *Queries) CreatePaymentMethod(ctx context.Context, arg CreatePaymentMethodParams) (PaymentMethod, error) {
	row := q.db.QueryRow(ctx, createPaymentMethod, arg.Name, arg.Icon, arg.DisplayOrder)
	var i PaymentMethod
	err := row.Scan(&i.ID, &i.Name, &i.Icon, &i.Enabled, &i.DisplayOrder)
	return i, err
}

const getDeliveryRegion = `-- name: GetDeliveryRegion :one
SELECT id, name, fee, created_at FROM delivery_regions
WHERE id = $1`

func (q *Queries) GetDeliveryRegion(ctx context.Context, id uuid.UUID) (DeliveryRegion, error) {
	row := q.db.QueryRow(ctx, getDeliveryRegion, id)
	var i DeliveryRegion
	err := row.Scan(&i.ID, &i.Name, &i.Fee, &i.CreatedAt)
	return i, err
}

const listDeliveryRegions = `-- name: ListDeliveryRegions :many
SELECT id, name, fee, created_at FROM delivery_regions
ORDER BY name`

func (q *Queries) ListDeliveryRegions(ctx context.Context) ([]DeliveryRegion, error) {
	rows, err := q.db.Query(ctx, listDeliveryRegions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DeliveryRegion
	for rows.Next() {
		var i DeliveryRegion
		if err := rows.Scan(&i.ID, &i.Name, &i.Fee, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createDeliveryRegion = `-- name: CreateDeliveryRegion :one
INSERT INTO delivery_regions (name, fee) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET fee = EXCLUDED.fee
RETURNING id, name, fee, created_at`

type CreateDeliveryRegionParams struct {
	Name string
	Fee  pgtype.Numeric
}

func (q *Queries) CreateDeliveryRegion(ctx context.Context, arg CreateDeliveryRegionParams) (DeliveryRegion, error) {
	row := q.db.QueryRow(ctx, createDeliveryRegion, arg.Name, arg.Fee)
	var i DeliveryRegion
	err := row.Scan(&i.ID, &i.Name, &i.Fee, &i.CreatedAt)
	return i, err
}

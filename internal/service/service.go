package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/draft"
	"github.com/comanda-app/api/internal/lifecycle"
	"github.com/comanda-app/api/internal/metrics"
	"github.com/comanda-app/api/internal/viewsync"
)

// Errors returned by the order service.
var (
	ErrEmptyItems         = draft.ErrEmptyCart
	ErrInvalidQuantity    = draft.ErrInvalidQuantity
	ErrInvalidProductID   = errors.New("invalid product_id")
	ErrInvalidAddonID     = errors.New("invalid addon_id")
	ErrProductNotFound    = errors.New("product not found")
	ErrAddonNotFound      = errors.New("addon not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrStatusChanged      = errors.New("order status was changed by someone else; reload and try again")
	ErrNotDeliveryOrder   = errors.New("order is not a delivery order")
	ErrRegionRequired     = errors.New("delivery region must be set before assigning a driver")
	ErrRegionNotFound     = errors.New("delivery region not found")
	ErrRegionLocked       = errors.New("delivery region cannot change after dispatch")
	ErrDriverNotFound     = errors.New("driver not found")
	ErrDriverUnavailable  = errors.New("driver is not available")
	ErrDeliveryStarted    = errors.New("delivery already has a driver")
	ErrDeliveryNotStarted = errors.New("delivery is not in progress")
	ErrOrderFinished      = errors.New("finished orders cannot be edited")
	ErrAddonInUse         = errors.New("addon is still linked to products or orders")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create and read orders.
type OrderStore interface {
	NextOrderNumber(ctx context.Context) (int64, error)
	GetProductForOrder(ctx context.Context, id uuid.UUID) (database.GetProductForOrderRow, error)
	GetAddonForOrder(ctx context.Context, arg database.GetAddonForOrderParams) (database.GetAddonForOrderRow, error)
	GetPaymentMethod(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error)
	GetDeliveryRegion(ctx context.Context, id uuid.UUID) (database.DeliveryRegion, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemAddon(ctx context.Context, arg database.CreateOrderItemAddonParams) (database.OrderItemAddon, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	ListKanbanOrders(ctx context.Context) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	ListOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemAddonsByOrderRow, error)
}

// LifecycleStore defines the DB methods that mutate existing orders.
type LifecycleStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	SoftDeleteOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	DeleteOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// DeliveryStore defines the DB methods of the delivery sub-machine.
type DeliveryStore interface {
	ListDeliveryOrders(ctx context.Context, arg database.ListDeliveryOrdersParams) ([]database.ListDeliveryOrdersRow, error)
	SetOrderRegion(ctx context.Context, arg database.SetOrderRegionParams) (database.Order, error)
	StartOrderDelivery(ctx context.Context, arg database.StartOrderDeliveryParams) (database.Order, error)
	CompleteOrderDelivery(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetDriverForUpdate(ctx context.Context, id uuid.UUID) (database.Driver, error)
	SetDriverStatus(ctx context.Context, arg database.SetDriverStatusParams) (database.Driver, error)
}

// AddonStore defines the DB methods needed to remove addons.
type AddonStore interface {
	CountAddonLinks(ctx context.Context, addonID uuid.UUID) (int64, error)
	DeleteAddon(ctx context.Context, id uuid.UUID) (int64, error)
}

// Store is everything the service needs. Satisfied by *database.Queries.
type Store interface {
	OrderStore
	LifecycleStore
	DeliveryStore
	AddonStore
}

// NewStore creates a Store from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewStore func(db database.DBTX) Store

// Options carries the tunables of OrderService.
type Options struct {
	DefaultDeliveryFee decimal.Decimal
	PhoneCountryPrefix string
	Logger             *zap.Logger
	Metrics            *metrics.Metrics
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	db       database.DBTX
	newStore NewStore
	views    *viewsync.Synchronizer

	defaultDeliveryFee decimal.Decimal
	phonePrefix        string
	logger             *zap.Logger
	metrics            *metrics.Metrics
}

// NewOrderService creates a new OrderService. db serves single-statement
// reads and writes; pool opens transactions. Both are usually the same
// *pgxpool.Pool.
func NewOrderService(pool TxBeginner, db database.DBTX, newStore NewStore, views *viewsync.Synchronizer, opts Options) *OrderService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		pool:               pool,
		db:                 db,
		newStore:           newStore,
		views:              views,
		defaultDeliveryFee: opts.DefaultDeliveryFee,
		phonePrefix:        opts.PhoneCountryPrefix,
		logger:             logger,
		metrics:            opts.Metrics,
	}
}

func (s *OrderService) store() Store {
	return s.newStore(s.db)
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (s *OrderService) inTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// IsConflict reports whether err is a business-rule rejection.
func IsConflict(err error) bool {
	for _, target := range []error{
		lifecycle.ErrTerminal,
		lifecycle.ErrInvalidTransition,
		lifecycle.ErrDeliveryConfirmationRequired,
		ErrStatusChanged,
		ErrNotDeliveryOrder,
		ErrRegionRequired,
		ErrRegionLocked,
		ErrDriverUnavailable,
		ErrDeliveryStarted,
		ErrDeliveryNotStarted,
		ErrOrderFinished,
		ErrAddonInUse,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsInvalidInput reports whether err was caused by the request payload.
func IsInvalidInput(err error) bool {
	var verr *draft.ValidationError
	if errors.As(err, &verr) {
		return true
	}
	for _, target := range []error{
		ErrEmptyItems,
		ErrInvalidQuantity,
		ErrInvalidProductID,
		ErrInvalidAddonID,
		ErrProductNotFound,
		ErrAddonNotFound,
		ErrRegionNotFound,
		draft.ErrProductUnavailable,
		draft.ErrAddonUnavailable,
		draft.ErrAddonNotApplicable,
		draft.ErrDuplicateAddon,
		draft.ErrRegionMismatch,
		lifecycle.ErrUnknownStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means the addressed resource is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrDriverNotFound) ||
		errors.Is(err, pgx.ErrNoRows)
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func money(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

func textOrNull(p *string) pgtype.Text {
	if p == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *p, Valid: true}
}

func uuidOrNull(p *uuid.UUID) pgtype.UUID {
	if p == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *p, Valid: true}
}

func optionalString(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func optionalUUID(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func optionalInt32(n pgtype.Int4) *int32 {
	if !n.Valid {
		return nil
	}
	v := n.Int32
	return &v
}

package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/viewsync"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.commits++
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx     pgx.Tx
	err    error
	begins int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	m.begins++
	return m.tx, m.err
}

// mockStore implements Store with configurable behavior.
type mockStore struct {
	nextOrderNumberFn            func(ctx context.Context) (int64, error)
	getProductForOrderFn         func(ctx context.Context, id uuid.UUID) (database.GetProductForOrderRow, error)
	getAddonForOrderFn           func(ctx context.Context, arg database.GetAddonForOrderParams) (database.GetAddonForOrderRow, error)
	getPaymentMethodFn           func(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error)
	getDeliveryRegionFn          func(ctx context.Context, id uuid.UUID) (database.DeliveryRegion, error)
	createOrderFn                func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn            func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	createOrderItemAddonFn       func(ctx context.Context, arg database.CreateOrderItemAddonParams) (database.OrderItemAddon, error)
	getOrderFn                   func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getOrderByNumberFn           func(ctx context.Context, number string) (database.Order, error)
	listOrdersFn                 func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	countOrdersFn                func(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	listKanbanOrdersFn           func(ctx context.Context) ([]database.Order, error)
	listOrderItemsByOrderFn      func(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	listOrderItemAddonsByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemAddonsByOrderRow, error)
	getOrderForUpdateFn          func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateOrderStatusFn          func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	updateOrderFn                func(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	softDeleteOrderFn            func(ctx context.Context, id uuid.UUID) (database.Order, error)
	deleteOrderItemAddonsFn      func(ctx context.Context, orderID uuid.UUID) error
	deleteOrderItemsFn           func(ctx context.Context, orderID uuid.UUID) error
	deleteOrderFn                func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listDeliveryOrdersFn         func(ctx context.Context, arg database.ListDeliveryOrdersParams) ([]database.ListDeliveryOrdersRow, error)
	setOrderRegionFn             func(ctx context.Context, arg database.SetOrderRegionParams) (database.Order, error)
	startOrderDeliveryFn         func(ctx context.Context, arg database.StartOrderDeliveryParams) (database.Order, error)
	completeOrderDeliveryFn      func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getDriverForUpdateFn         func(ctx context.Context, id uuid.UUID) (database.Driver, error)
	setDriverStatusFn            func(ctx context.Context, arg database.SetDriverStatusParams) (database.Driver, error)
	countAddonLinksFn            func(ctx context.Context, addonID uuid.UUID) (int64, error)
	deleteAddonFn                func(ctx context.Context, id uuid.UUID) (int64, error)
}

func (m *mockStore) NextOrderNumber(ctx context.Context) (int64, error) {
	return m.nextOrderNumberFn(ctx)
}
func (m *mockStore) GetProductForOrder(ctx context.Context, id uuid.UUID) (database.GetProductForOrderRow, error) {
	return m.getProductForOrderFn(ctx, id)
}
func (m *mockStore) GetAddonForOrder(ctx context.Context, arg database.GetAddonForOrderParams) (database.GetAddonForOrderRow, error) {
	return m.getAddonForOrderFn(ctx, arg)
}
func (m *mockStore) GetPaymentMethod(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error) {
	return m.getPaymentMethodFn(ctx, id)
}
func (m *mockStore) GetDeliveryRegion(ctx context.Context, id uuid.UUID) (database.DeliveryRegion, error) {
	return m.getDeliveryRegionFn(ctx, id)
}
func (m *mockStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockStore) CreateOrderItemAddon(ctx context.Context, arg database.CreateOrderItemAddonParams) (database.OrderItemAddon, error) {
	return m.createOrderItemAddonFn(ctx, arg)
}
func (m *mockStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockStore) GetOrderByNumber(ctx context.Context, number string) (database.Order, error) {
	return m.getOrderByNumberFn(ctx, number)
}
func (m *mockStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrdersFn(ctx, arg)
}
func (m *mockStore) CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error) {
	return m.countOrdersFn(ctx, arg)
}
func (m *mockStore) ListKanbanOrders(ctx context.Context) ([]database.Order, error) {
	return m.listKanbanOrdersFn(ctx)
}
func (m *mockStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}
func (m *mockStore) ListOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemAddonsByOrderRow, error) {
	return m.listOrderItemAddonsByOrderFn(ctx, orderID)
}
func (m *mockStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockStore) UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error) {
	return m.updateOrderFn(ctx, arg)
}
func (m *mockStore) SoftDeleteOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.softDeleteOrderFn(ctx, id)
}
func (m *mockStore) DeleteOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.deleteOrderItemAddonsFn(ctx, orderID)
}
func (m *mockStore) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.deleteOrderItemsFn(ctx, orderID)
}
func (m *mockStore) DeleteOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.deleteOrderFn(ctx, id)
}
func (m *mockStore) ListDeliveryOrders(ctx context.Context, arg database.ListDeliveryOrdersParams) ([]database.ListDeliveryOrdersRow, error) {
	return m.listDeliveryOrdersFn(ctx, arg)
}
func (m *mockStore) SetOrderRegion(ctx context.Context, arg database.SetOrderRegionParams) (database.Order, error) {
	return m.setOrderRegionFn(ctx, arg)
}
func (m *mockStore) StartOrderDelivery(ctx context.Context, arg database.StartOrderDeliveryParams) (database.Order, error) {
	return m.startOrderDeliveryFn(ctx, arg)
}
func (m *mockStore) CompleteOrderDelivery(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.completeOrderDeliveryFn(ctx, id)
}
func (m *mockStore) GetDriverForUpdate(ctx context.Context, id uuid.UUID) (database.Driver, error) {
	return m.getDriverForUpdateFn(ctx, id)
}
func (m *mockStore) SetDriverStatus(ctx context.Context, arg database.SetDriverStatusParams) (database.Driver, error) {
	return m.setDriverStatusFn(ctx, arg)
}
func (m *mockStore) CountAddonLinks(ctx context.Context, addonID uuid.UUID) (int64, error) {
	return m.countAddonLinksFn(ctx, addonID)
}
func (m *mockStore) DeleteAddon(ctx context.Context, id uuid.UUID) (int64, error) {
	return m.deleteAddonFn(ctx, id)
}

// recordingHub captures websocket broadcasts.
type recordingHub struct {
	mu     sync.Mutex
	events []map[string]any
	rooms  []string
}

func (h *recordingHub) Broadcast(room string, msg []byte) {
	var ev map[string]any
	_ = json.Unmarshal(msg, &ev)
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.rooms = append(h.rooms, room)
	h.mu.Unlock()
}

func (h *recordingHub) count(eventType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, ev := range h.events {
		if ev["type"] == eventType {
			n++
		}
	}
	return n
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

type testEnv struct {
	svc   *OrderService
	tx    *mockTx
	pool  *mockTxBeginner
	hub   *recordingHub
	cache *viewsync.MemoryStore
}

// newTestService creates an OrderService with mocked dependencies.
// store is returned by the NewStore factory for pool and tx alike.
func newTestService(store *mockStore) *testEnv {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	hub := &recordingHub{}
	cache := viewsync.NewMemoryStore()
	views := viewsync.New(cache, hub, time.Minute, zap.NewNop(), nil)
	newStore := func(db database.DBTX) Store { return store }
	svc := NewOrderService(pool, nil, newStore, views, Options{
		DefaultDeliveryFee: decimal.RequireFromString("5.00"),
		PhoneCountryPrefix: "55",
	})
	return &testEnv{svc: svc, tx: tx, pool: pool, hub: hub, cache: cache}
}

func testOrder(status, orderType string) database.Order {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return database.Order{
		ID:              uuid.New(),
		Number:          "000010",
		CustomerName:    "Maria",
		CustomerPhone:   "5511987654321",
		OrderType:       orderType,
		Status:          status,
		PaymentMethodID: uuid.New(),
		PaymentStatus:   "pending",
		Subtotal:        makeNumeric("30.00"),
		DeliveryFee:     makeNumeric("0.00"),
		Discount:        makeNumeric("0.00"),
		Total:           makeNumeric("30.00"),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

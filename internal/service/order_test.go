package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/draft"
	"github.com/comanda-app/api/internal/viewsync"
)

type catalogFixture struct {
	paymentMethodID uuid.UUID
	productID       uuid.UUID
	addonID         uuid.UUID
	regionID        uuid.UUID
}

// defaultStore returns a mockStore that knows one payment method, one
// product at 15.00, one addon at 3.50 capped at 3 and one region at 8.00.
// Individual tests override the functions they care about.
func defaultStore() (*mockStore, catalogFixture) {
	fx := catalogFixture{
		paymentMethodID: uuid.New(),
		productID:       uuid.New(),
		addonID:         uuid.New(),
		regionID:        uuid.New(),
	}
	return &mockStore{
		nextOrderNumberFn: func(ctx context.Context) (int64, error) {
			return 7, nil
		},
		getPaymentMethodFn: func(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error) {
			if id != fx.paymentMethodID {
				return database.PaymentMethod{}, pgx.ErrNoRows
			}
			return database.PaymentMethod{ID: id, Name: "Pix", Enabled: true}, nil
		},
		getDeliveryRegionFn: func(ctx context.Context, id uuid.UUID) (database.DeliveryRegion, error) {
			if id != fx.regionID {
				return database.DeliveryRegion{}, pgx.ErrNoRows
			}
			return database.DeliveryRegion{ID: id, Name: "Centro", Fee: makeNumeric("8.00")}, nil
		},
		getProductForOrderFn: func(ctx context.Context, id uuid.UUID) (database.GetProductForOrderRow, error) {
			if id != fx.productID {
				return database.GetProductForOrderRow{}, pgx.ErrNoRows
			}
			return database.GetProductForOrderRow{ID: id, Price: makeNumeric("15.00"), Available: true}, nil
		},
		getAddonForOrderFn: func(ctx context.Context, arg database.GetAddonForOrderParams) (database.GetAddonForOrderRow, error) {
			if arg.ID != fx.addonID {
				return database.GetAddonForOrderRow{}, pgx.ErrNoRows
			}
			return database.GetAddonForOrderRow{
				ID:         arg.ID,
				Price:      makeNumeric("3.50"),
				Available:  true,
				Applicable: arg.ProductID == fx.productID,
				MaxOptions: pgtype.Int4{Int32: 3, Valid: true},
			}, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:               uuid.New(),
				Number:           arg.Number,
				CustomerName:     arg.CustomerName,
				CustomerPhone:    arg.CustomerPhone,
				OrderType:        arg.OrderType,
				Status:           arg.Status,
				PaymentMethodID:  arg.PaymentMethodID,
				PaymentStatus:    arg.PaymentStatus,
				Subtotal:         arg.Subtotal,
				DeliveryFee:      arg.DeliveryFee,
				Discount:         arg.Discount,
				Total:            arg.Total,
				DeliveryAddress:  arg.DeliveryAddress,
				DeliveryRegionID: arg.DeliveryRegionID,
				DeliveryStatus:   arg.DeliveryStatus,
				TableNumber:      arg.TableNumber,
				Notes:            arg.Notes,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:         uuid.New(),
				OrderID:    arg.OrderID,
				ProductID:  arg.ProductID,
				Quantity:   arg.Quantity,
				UnitPrice:  arg.UnitPrice,
				TotalPrice: arg.TotalPrice,
				Notes:      arg.Notes,
			}, nil
		},
		createOrderItemAddonFn: func(ctx context.Context, arg database.CreateOrderItemAddonParams) (database.OrderItemAddon, error) {
			return database.OrderItemAddon{
				ID:          uuid.New(),
				OrderItemID: arg.OrderItemID,
				AddonID:     arg.AddonID,
				Quantity:    arg.Quantity,
				UnitPrice:   arg.UnitPrice,
				TotalPrice:  arg.TotalPrice,
			}, nil
		},
	}, fx
}

func basicReq(fx catalogFixture) CreateOrderRequest {
	return CreateOrderRequest{
		Surface:         draft.SurfaceCheckout,
		CustomerName:    "Maria Silva",
		CustomerPhone:   "(11) 98765-4321",
		OrderType:       "takeaway",
		PaymentMethodID: fx.paymentMethodID.String(),
		Items: []CreateOrderItemRequest{
			{ProductID: fx.productID.String(), Quantity: 2},
		},
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.Items = nil
	_, err := env.svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got: %v", err)
	}
	if env.pool.begins != 0 {
		t.Fatalf("no transaction should start, got %d", env.pool.begins)
	}
}

func TestCreateOrder_FormValidation(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.CustomerName = "Al"
	req.CustomerPhone = "1234"
	req.OrderType = "delivery"

	_, err := env.svc.CreateOrder(context.Background(), req)
	var verr *draft.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	for _, field := range []string{"name", "phone", "address.street", "address.zip"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected field error on %s, got %v", field, verr.Fields)
		}
	}
	if env.pool.begins != 0 {
		t.Fatalf("no transaction should start, got %d", env.pool.begins)
	}
}

func TestCreateOrder_AdminSurfaceAcceptsShortName(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.Surface = draft.SurfaceAdmin
	req.CustomerName = "Jo"

	if _, err := env.svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateOrder_InvalidPaymentMethodID(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.PaymentMethodID = "pix"
	_, err := env.svc.CreateOrder(context.Background(), req)
	var verr *draft.ValidationError
	if !errors.As(err, &verr) || verr.Fields["payment_method_id"] == "" {
		t.Fatalf("expected payment_method_id field error, got: %v", err)
	}
}

func TestCreateOrder_DisabledPaymentMethod(t *testing.T) {
	store, fx := defaultStore()
	store.getPaymentMethodFn = func(ctx context.Context, id uuid.UUID) (database.PaymentMethod, error) {
		return database.PaymentMethod{ID: id, Enabled: false}, nil
	}
	env := newTestService(store)

	_, err := env.svc.CreateOrder(context.Background(), basicReq(fx))
	var verr *draft.ValidationError
	if !errors.As(err, &verr) || verr.Fields["payment_method_id"] == "" {
		t.Fatalf("expected payment_method_id field error, got: %v", err)
	}
	if env.tx.commits != 0 {
		t.Fatal("transaction must not commit")
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.Items[0].Quantity = 0
	_, err := env.svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestCreateOrder_MissingProductID(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.Items[0].ProductID = ""
	_, err := env.svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidProductID) {
		t.Fatalf("expected ErrInvalidProductID, got: %v", err)
	}
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.Items[0].ProductID = uuid.New().String()
	_, err := env.svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "item[0]") {
		t.Errorf("expected item index in error, got: %v", err)
	}
}

func TestCreateOrder_ProductUnavailable(t *testing.T) {
	store, fx := defaultStore()
	store.getProductForOrderFn = func(ctx context.Context, id uuid.UUID) (database.GetProductForOrderRow, error) {
		return database.GetProductForOrderRow{ID: id, Price: makeNumeric("15.00"), Available: false}, nil
	}
	env := newTestService(store)

	_, err := env.svc.CreateOrder(context.Background(), basicReq(fx))
	if !errors.Is(err, draft.ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got: %v", err)
	}
}

func TestCreateOrder_AddonNotApplicable(t *testing.T) {
	store, fx := defaultStore()
	store.getAddonForOrderFn = func(ctx context.Context, arg database.GetAddonForOrderParams) (database.GetAddonForOrderRow, error) {
		return database.GetAddonForOrderRow{ID: arg.ID, Price: makeNumeric("1.00"), Available: true, Applicable: false}, nil
	}
	env := newTestService(store)

	req := basicReq(fx)
	req.Items[0].Addons = []CreateOrderItemAddonRequest{{AddonID: fx.addonID.String(), Quantity: 1}}
	_, err := env.svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, draft.ErrAddonNotApplicable) {
		t.Fatalf("expected ErrAddonNotApplicable, got: %v", err)
	}
}

func TestCreateOrder_UnknownRegion(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.OrderType = "delivery"
	req.Address = draft.Address{Street: "Rua A", Number: "10", Neighborhood: "Centro", Zip: "01000-000"}
	req.RegionID = uuid.New().String()
	_, err := env.svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrRegionNotFound) {
		t.Fatalf("expected ErrRegionNotFound, got: %v", err)
	}
}

// =====================
// Pricing and persistence
// =====================

func TestCreateOrder_TakeawayRoundTrip(t *testing.T) {
	store, fx := defaultStore()

	var created database.CreateOrderParams
	createOrder := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		created = arg
		return createOrder(ctx, arg)
	}
	var items []database.CreateOrderItemParams
	createItem := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		items = append(items, arg)
		return createItem(ctx, arg)
	}

	env := newTestService(store)
	result, err := env.svc.CreateOrder(context.Background(), basicReq(fx))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Number != "000007" {
		t.Errorf("expected number 000007, got %s", created.Number)
	}
	if created.Status != "pending" || created.PaymentStatus != "pending" {
		t.Errorf("expected pending/pending, got %s/%s", created.Status, created.PaymentStatus)
	}
	if created.CustomerPhone != "5511987654321" {
		t.Errorf("expected normalized phone, got %s", created.CustomerPhone)
	}
	if !numericEquals(created.Subtotal, "30.00") || !numericEquals(created.Total, "30.00") {
		t.Errorf("expected subtotal and total 30.00, got %v / %v", numericToDecimal(created.Subtotal), numericToDecimal(created.Total))
	}
	if !numericEquals(created.DeliveryFee, "0") || !numericEquals(created.Discount, "0") {
		t.Errorf("expected zero fee and discount")
	}
	if created.DeliveryAddress.Valid || created.DeliveryStatus.Valid || created.TableNumber.Valid {
		t.Errorf("takeaway must not carry delivery or table fields: %+v", created)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if !numericEquals(items[0].UnitPrice, "15.00") || !numericEquals(items[0].TotalPrice, "30.00") {
		t.Errorf("expected unit 15.00 total 30.00, got %v / %v", numericToDecimal(items[0].UnitPrice), numericToDecimal(items[0].TotalPrice))
	}

	if result.Total != "30.00" || len(result.Items) != 1 || result.Items[0].TotalPrice != "30.00" {
		t.Errorf("unexpected result: %+v", result)
	}
	if env.tx.commits != 1 {
		t.Errorf("expected 1 commit, got %d", env.tx.commits)
	}
	if got := env.hub.count(viewsync.EventInvalidate); got != len(viewsync.AllTopics) {
		t.Errorf("expected %d invalidate events, got %d", len(viewsync.AllTopics), got)
	}
}

func TestCreateOrder_WithAddons(t *testing.T) {
	store, fx := defaultStore()
	store.getProductForOrderFn = func(ctx context.Context, id uuid.UUID) (database.GetProductForOrderRow, error) {
		return database.GetProductForOrderRow{ID: id, Price: makeNumeric("20.00"), Available: true}, nil
	}
	var addons []database.CreateOrderItemAddonParams
	createAddon := store.createOrderItemAddonFn
	store.createOrderItemAddonFn = func(ctx context.Context, arg database.CreateOrderItemAddonParams) (database.OrderItemAddon, error) {
		addons = append(addons, arg)
		return createAddon(ctx, arg)
	}
	env := newTestService(store)

	req := basicReq(fx)
	req.Items = []CreateOrderItemRequest{{
		ProductID: fx.productID.String(),
		Quantity:  3,
		Addons:    []CreateOrderItemAddonRequest{{AddonID: fx.addonID.String(), Quantity: 2}},
	}}

	result, err := env.svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// (20.00 + 3.50 x 2) x 3 = 81.00; unit price stays the base price.
	item := result.Items[0]
	if item.UnitPrice != "20.00" || item.TotalPrice != "81.00" {
		t.Errorf("expected unit 20.00 total 81.00, got %s / %s", item.UnitPrice, item.TotalPrice)
	}
	if result.Subtotal != "81.00" || result.Total != "81.00" {
		t.Errorf("expected 81.00 totals, got %s / %s", result.Subtotal, result.Total)
	}
	if len(addons) != 1 || addons[0].Quantity != 2 || !numericEquals(addons[0].TotalPrice, "7.00") {
		t.Errorf("unexpected addon lines: %+v", addons)
	}
}

func TestCreateOrder_AddonQuantityCapped(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.Items = []CreateOrderItemRequest{{
		ProductID: fx.productID.String(),
		Quantity:  1,
		Addons:    []CreateOrderItemAddonRequest{{AddonID: fx.addonID.String(), Quantity: 5}},
	}}

	result, err := env.svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	addon := result.Items[0].Addons[0]
	if addon.Quantity != 3 {
		t.Errorf("expected addon quantity capped at 3, got %d", addon.Quantity)
	}
	// 15.00 + 3.50 x 3
	if result.Total != "25.50" {
		t.Errorf("expected total 25.50, got %s", result.Total)
	}
}

func TestCreateOrder_DeliveryWithRegion(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.OrderType = "delivery"
	req.Address = draft.Address{Street: "Rua A", Number: "10", Complement: "ap 2", Neighborhood: "Centro", Zip: "01000-000"}
	req.RegionID = fx.regionID.String()

	result, err := env.svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeliveryFee != "8.00" || result.Total != "38.00" {
		t.Errorf("expected fee 8.00 total 38.00, got %s / %s", result.DeliveryFee, result.Total)
	}
	if result.DeliveryStatus == nil || *result.DeliveryStatus != "pending" {
		t.Errorf("expected delivery status pending, got %v", result.DeliveryStatus)
	}
	if result.DeliveryAddress == nil || *result.DeliveryAddress != "Rua A, 10 - ap 2 - Centro - 01000-000" {
		t.Errorf("unexpected address: %v", result.DeliveryAddress)
	}
	if result.DeliveryRegionID == nil || *result.DeliveryRegionID != fx.regionID {
		t.Errorf("expected region id %s, got %v", fx.regionID, result.DeliveryRegionID)
	}
}

func TestCreateOrder_DeliveryWithoutRegionUsesDefaultFee(t *testing.T) {
	store, fx := defaultStore()
	env := newTestService(store)

	req := basicReq(fx)
	req.OrderType = "delivery"
	req.Address = draft.Address{Street: "Rua A", Number: "10", Neighborhood: "Centro", Zip: "01000-000"}

	result, err := env.svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeliveryFee != "5.00" || result.Total != "35.00" {
		t.Errorf("expected default fee 5.00 total 35.00, got %s / %s", result.DeliveryFee, result.Total)
	}
}

func TestCreateOrder_NonDeliveryIgnoresRegion(t *testing.T) {
	store, fx := defaultStore()
	store.getDeliveryRegionFn = func(ctx context.Context, id uuid.UUID) (database.DeliveryRegion, error) {
		t.Fatal("region must not be resolved for an in-store order")
		return database.DeliveryRegion{}, nil
	}
	env := newTestService(store)

	req := basicReq(fx)
	req.OrderType = "instore"
	req.TableNumber = "12"
	req.RegionID = fx.regionID.String()

	result, err := env.svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeliveryFee != "0.00" || result.Total != "30.00" {
		t.Errorf("expected no delivery fee, got %s / %s", result.DeliveryFee, result.Total)
	}
	if result.TableNumber == nil || *result.TableNumber != "12" {
		t.Errorf("expected table 12, got %v", result.TableNumber)
	}
}

// =====================
// Order number retry
// =====================

func TestCreateOrder_RetryOnUniqueViolation(t *testing.T) {
	store, fx := defaultStore()

	createCallCount := 0
	createOrder := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		createCallCount++
		if createCallCount == 1 {
			return database.Order{}, &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "orders_number_key",
			}
		}
		return createOrder(ctx, arg)
	}

	orderNumCallCount := 0
	store.nextOrderNumberFn = func(ctx context.Context) (int64, error) {
		orderNumCallCount++
		return int64(orderNumCallCount), nil
	}

	env := newTestService(store)
	result, err := env.svc.CreateOrder(context.Background(), basicReq(fx))
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if result.Number != "000002" {
		t.Errorf("expected number from second attempt, got %s", result.Number)
	}
	if createCallCount != 2 {
		t.Errorf("expected 2 CreateOrder calls (1 fail + 1 success), got %d", createCallCount)
	}
	if orderNumCallCount != 2 {
		t.Errorf("expected 2 NextOrderNumber calls, got %d", orderNumCallCount)
	}
}

func TestCreateOrder_RetryExhausted(t *testing.T) {
	store, fx := defaultStore()
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{
			Code:           "23505",
			ConstraintName: "orders_number_key",
		}
	}

	env := newTestService(store)
	_, err := env.svc.CreateOrder(context.Background(), basicReq(fx))
	if err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if !strings.Contains(err.Error(), "create order") {
		t.Errorf("expected 'create order' in error message, got: %v", err)
	}
	if env.pool.begins != maxOrderNumberRetries {
		t.Errorf("expected %d attempts, got %d", maxOrderNumberRetries, env.pool.begins)
	}
}

func TestCreateOrder_NonUniqueErrorNotRetried(t *testing.T) {
	store, fx := defaultStore()

	callCount := 0
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		callCount++
		return database.OrderItem{}, errors.New("some other DB error")
	}

	env := newTestService(store)
	_, err := env.svc.CreateOrder(context.Background(), basicReq(fx))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "create order item") {
		t.Errorf("expected failing step in error, got: %v", err)
	}
	if callCount != 1 {
		t.Errorf("non-unique errors should not retry: expected 1 call, got %d", callCount)
	}
	if env.tx.commits != 0 {
		t.Error("a failed create must not commit")
	}
	if env.hub.count(viewsync.EventInvalidate) != 0 {
		t.Error("a failed create must not publish")
	}
}

// =====================
// Reads
// =====================

func TestListOrders_Pagination(t *testing.T) {
	store, _ := defaultStore()
	var got database.ListOrdersParams
	store.listOrdersFn = func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
		got = arg
		return []database.Order{testOrder("pending", "takeaway")}, nil
	}
	store.countOrdersFn = func(ctx context.Context, arg database.CountOrdersParams) (int64, error) {
		if arg.Status != got.Status || arg.Search != got.Search {
			t.Errorf("count filters differ from list filters")
		}
		return 45, nil
	}
	env := newTestService(store)

	page, err := env.svc.ListOrders(context.Background(), ListOrdersParams{Page: 2, Limit: 500, Search: " maria ", Status: "pending"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != MaxPageLimit || got.Offset != MaxPageLimit {
		t.Errorf("expected limit/offset %d/%d, got %d/%d", MaxPageLimit, MaxPageLimit, got.Limit, got.Offset)
	}
	if got.Search.String != "maria" || got.Status.String != "pending" {
		t.Errorf("unexpected filters: %+v", got)
	}
	if page.HasNextPage || !page.HasPreviousPage || page.Total != 45 {
		t.Errorf("unexpected page flags: %+v", page)
	}

	page, _ = env.svc.ListOrders(context.Background(), ListOrdersParams{})
	if page.Page != 1 || page.Limit != DefaultPageLimit || !page.HasNextPage || page.HasPreviousPage {
		t.Errorf("unexpected default page: %+v", page)
	}
}

func TestListOrders_HugePageClamped(t *testing.T) {
	store, _ := defaultStore()
	var got database.ListOrdersParams
	store.listOrdersFn = func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
		got = arg
		return nil, nil
	}
	store.countOrdersFn = func(ctx context.Context, arg database.CountOrdersParams) (int64, error) {
		return 3, nil
	}
	env := newTestService(store)

	page, err := env.svc.ListOrders(context.Background(), ListOrdersParams{Page: 50_000_000, Limit: MaxPageLimit})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantOffset := int32((MaxPage - 1) * MaxPageLimit)
	if got.Offset != wantOffset || got.Offset < 0 {
		t.Errorf("offset: got %d, want %d", got.Offset, wantOffset)
	}
	if page.Page != MaxPage || page.HasNextPage {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestGetOrderWithDetails_CachedUntilChange(t *testing.T) {
	store, _ := defaultStore()
	order := testOrder("pending", "takeaway")
	itemID := uuid.New()

	loads := 0
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		loads++
		return order, nil
	}
	store.listOrderItemsByOrderFn = func(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error) {
		return []database.ListOrderItemsByOrderRow{{
			OrderItem:   database.OrderItem{ID: itemID, OrderID: orderID, Quantity: 2, UnitPrice: makeNumeric("15"), TotalPrice: makeNumeric("30")},
			ProductName: "X-Burger",
		}}, nil
	}
	store.listOrderItemAddonsByOrderFn = func(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemAddonsByOrderRow, error) {
		return []database.ListOrderItemAddonsByOrderRow{{
			OrderItemAddon: database.OrderItemAddon{OrderItemID: itemID, Quantity: 1, UnitPrice: makeNumeric("2"), TotalPrice: makeNumeric("2")},
			AddonName:      "Bacon",
		}}, nil
	}
	env := newTestService(store)
	ctx := context.Background()

	detail, err := env.svc.GetOrderWithDetails(ctx, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detail.Items) != 1 || detail.Items[0].ProductName != "X-Burger" || len(detail.Items[0].Addons) != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if detail.Items[0].Addons[0].Name != "Bacon" || detail.Items[0].UnitPrice != "15.00" {
		t.Errorf("unexpected item: %+v", detail.Items[0])
	}

	_, _ = env.svc.GetOrderWithDetails(ctx, order.ID)
	if loads != 1 {
		t.Fatalf("expected cached detail, got %d loads", loads)
	}

	env.svc.views.Publish(ctx, viewsync.Change{OrderID: order.ID, Reason: viewsync.ReasonUpdated})
	_, _ = env.svc.GetOrderWithDetails(ctx, order.ID)
	if loads != 2 {
		t.Fatalf("expected reload after change, got %d loads", loads)
	}
}

func TestGetOrderWithDetails_NotFound(t *testing.T) {
	store, _ := defaultStore()
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}
	env := newTestService(store)

	_, err := env.svc.GetOrderWithDetails(context.Background(), uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestTrack(t *testing.T) {
	store, _ := defaultStore()
	order := testOrder("out_for_delivery", "delivery")
	order.Number = "000042"
	store.getOrderByNumberFn = func(ctx context.Context, number string) (database.Order, error) {
		if number != "000042" {
			return database.Order{}, pgx.ErrNoRows
		}
		return order, nil
	}
	env := newTestService(store)

	view, err := env.svc.Track(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Stage != "on_the_way" || view.Number != "000042" {
		t.Errorf("unexpected tracker view: %+v", view)
	}

	if _, err := env.svc.Track(context.Background(), "DELETED_000042"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("deleted numbers must not be tracked, got: %v", err)
	}
	if _, err := env.svc.Track(context.Background(), "999"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestNormalizeOrderNumber(t *testing.T) {
	tests := map[string]string{
		"42":      "000042",
		"#7":      "000007",
		"000123":  "000123",
		"1234567": "1234567",
		"abc":     "abc",
		"":        "",
	}
	for in, want := range tests {
		if got := NormalizeOrderNumber(in); got != want {
			t.Errorf("NormalizeOrderNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsInvalidInput(&draft.ValidationError{Fields: map[string]string{"name": "x"}}) {
		t.Error("validation errors are invalid input")
	}
	if !IsInvalidInput(errors.Join(errors.New("item[0]"), ErrProductNotFound)) {
		t.Error("wrapped product errors are invalid input")
	}
	if !IsConflict(ErrStatusChanged) || !IsConflict(ErrDriverUnavailable) {
		t.Error("business rule errors are conflicts")
	}
	if IsConflict(ErrOrderNotFound) || !IsNotFound(ErrOrderNotFound) {
		t.Error("missing orders are not found, not conflicts")
	}
}

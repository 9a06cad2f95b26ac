package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/draft"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/lifecycle"
	"github.com/comanda-app/api/internal/viewsync"
)

const (
	maxOrderNumberRetries = 3

	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxPage keeps (page-1)*limit inside the int32 offset.
	MaxPage = 1_000_000
)

// CreateOrderRequest is the submitted checkout or admin form plus cart.
type CreateOrderRequest struct {
	Surface         string
	CustomerName    string
	CustomerPhone   string
	OrderType       string
	PaymentMethodID string
	Notes           string
	Address         draft.Address
	RegionID        string
	TableNumber     string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single cart line.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int32
	Notes     string
	Addons    []CreateOrderItemAddonRequest
}

// CreateOrderItemAddonRequest is an addon selected on a cart line.
type CreateOrderItemAddonRequest struct {
	AddonID  string
	Quantity int32
}

// CreateOrder validates, prices and persists an order in one transaction.
// Retries up to maxOrderNumberRetries times on order number unique
// constraint violations.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	form, err := s.form(req)
	if err != nil {
		return nil, err
	}
	if err := draft.ValidateForm(form); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		detail, err := s.createOrderTx(ctx, req, form)
		if err == nil {
			s.metrics.OrderCreated(detail.OrderType, form.Surface)
			s.views.Publish(ctx, viewsync.Change{OrderID: detail.ID, Number: detail.Number, Reason: viewsync.ReasonCreated})
			s.logger.Info("order created",
				zap.String("order_id", detail.ID.String()),
				zap.String("number", detail.Number),
				zap.String("order_type", detail.OrderType),
				zap.String("surface", form.Surface),
				zap.String("total", detail.Total),
			)
			return detail, nil
		}
		if isOrderNumberConflict(err) {
			s.logger.Warn("order number conflict, retrying", zap.Int("attempt", attempt+1))
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *OrderService) form(req CreateOrderRequest) (draft.Form, error) {
	surface := req.Surface
	if surface == "" {
		surface = draft.SurfaceCheckout
	}

	paymentMethodID := uuid.Nil
	if strings.TrimSpace(req.PaymentMethodID) != "" {
		id, err := uuid.Parse(req.PaymentMethodID)
		if err != nil {
			return draft.Form{}, &draft.ValidationError{Fields: map[string]string{"payment_method_id": "is not a valid id"}}
		}
		paymentMethodID = id
	}

	regionID := uuid.Nil
	if req.OrderType == enum.OrderTypeDelivery && strings.TrimSpace(req.RegionID) != "" {
		id, err := uuid.Parse(req.RegionID)
		if err != nil {
			return draft.Form{}, &draft.ValidationError{Fields: map[string]string{"delivery_region_id": "is not a valid id"}}
		}
		regionID = id
	}

	return draft.Form{
		Surface:         surface,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		PaymentMethodID: paymentMethodID,
		Notes:           req.Notes,
		Fulfillment:     draft.NewFulfillment(req.OrderType, req.Address, regionID, req.TableNumber),
	}, nil
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_number_key"
	}
	return false
}

// createOrderTx resolves the catalog, builds the draft and inserts the order,
// its items and addon lines in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, form draft.Form) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	in, err := s.resolveInput(ctx, store, req, form)
	if err != nil {
		return nil, err
	}

	d, err := draft.Build(*in)
	if err != nil {
		return nil, err
	}

	next, err := store.NextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}
	number := fmt.Sprintf("%0*d", enum.OrderNumberWidth, next)

	h := d.Header
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		Number:           number,
		CustomerName:     h.CustomerName,
		CustomerPhone:    h.CustomerPhone,
		OrderType:        h.OrderType,
		Status:           h.Status,
		PaymentMethodID:  h.PaymentMethodID,
		PaymentStatus:    h.PaymentStatus,
		Subtotal:         decimalToNumeric(h.Subtotal),
		DeliveryFee:      decimalToNumeric(h.DeliveryFee),
		Discount:         decimalToNumeric(h.Discount),
		Total:            decimalToNumeric(h.Total),
		DeliveryAddress:  textOrNull(h.DeliveryAddress),
		DeliveryRegionID: uuidOrNull(h.DeliveryRegionID),
		DeliveryStatus:   textOrNull(h.DeliveryStatus),
		TableNumber:      textOrNull(h.TableNumber),
		Notes:            textOrNull(h.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	detail := &OrderDetail{OrderView: toOrderView(order), Items: make([]OrderItemView, 0, len(d.Items))}
	for _, di := range d.Items {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			ProductID:  di.ProductID,
			Quantity:   di.Quantity,
			UnitPrice:  decimalToNumeric(di.UnitPrice),
			TotalPrice: decimalToNumeric(di.TotalPrice),
			Notes:      textOrNull(di.Notes),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		iv := OrderItemView{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  money(item.UnitPrice),
			TotalPrice: money(item.TotalPrice),
			Notes:      optionalString(item.Notes),
			Addons:     make([]OrderItemAddonView, 0, len(di.Addons)),
		}
		for _, da := range di.Addons {
			addon, err := store.CreateOrderItemAddon(ctx, database.CreateOrderItemAddonParams{
				OrderItemID: item.ID,
				AddonID:     da.AddonID,
				Quantity:    da.Quantity,
				UnitPrice:   decimalToNumeric(da.UnitPrice),
				TotalPrice:  decimalToNumeric(da.TotalPrice),
			})
			if err != nil {
				return nil, fmt.Errorf("create order item addon: %w", err)
			}
			iv.Addons = append(iv.Addons, OrderItemAddonView{
				ID:         addon.ID,
				AddonID:    addon.AddonID,
				Quantity:   addon.Quantity,
				UnitPrice:  money(addon.UnitPrice),
				TotalPrice: money(addon.TotalPrice),
			})
		}
		detail.Items = append(detail.Items, iv)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return detail, nil
}

// resolveInput loads the catalog rows the cart refers to.
func (s *OrderService) resolveInput(ctx context.Context, store Store, req CreateOrderRequest, form draft.Form) (*draft.Input, error) {
	in := &draft.Input{
		Form:               form,
		DefaultDeliveryFee: s.defaultDeliveryFee,
		PhoneCountryPrefix: s.phonePrefix,
		Cart:               make([]draft.CartLine, 0, len(req.Items)),
	}

	pm, err := store.GetPaymentMethod(ctx, form.PaymentMethodID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &draft.ValidationError{Fields: map[string]string{"payment_method_id": "payment method not found"}}
		}
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	in.PaymentMethod = draft.PaymentMethod{ID: pm.ID, Enabled: pm.Enabled}

	if del, ok := form.Fulfillment.(draft.Delivery); ok && del.RegionID != uuid.Nil {
		region, err := store.GetDeliveryRegion(ctx, del.RegionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrRegionNotFound
			}
			return nil, fmt.Errorf("get delivery region: %w", err)
		}
		in.Region = &draft.Region{ID: region.ID, Fee: numericToDecimal(region.Fee)}
	}

	for i, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		product, err := store.GetProductForOrder(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}

		line := draft.CartLine{
			Product:  draft.Product{ID: product.ID, Price: numericToDecimal(product.Price), Available: product.Available},
			Quantity: item.Quantity,
			Notes:    item.Notes,
		}
		for j, a := range item.Addons {
			addonID, err := uuid.Parse(a.AddonID)
			if err != nil {
				return nil, fmt.Errorf("item[%d].addon[%d]: %w", i, j, ErrInvalidAddonID)
			}
			addon, err := store.GetAddonForOrder(ctx, database.GetAddonForOrderParams{ID: addonID, ProductID: productID})
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("item[%d].addon[%d]: %w", i, j, ErrAddonNotFound)
				}
				return nil, fmt.Errorf("item[%d].addon[%d]: get addon: %w", i, j, err)
			}
			line.Addons = append(line.Addons, draft.CartAddon{
				Addon: draft.Addon{
					ID:         addon.ID,
					Price:      numericToDecimal(addon.Price),
					Available:  addon.Available,
					Applicable: addon.Applicable,
					MaxOptions: optionalInt32(addon.MaxOptions),
				},
				Quantity: a.Quantity,
			})
		}
		in.Cart = append(in.Cart, line)
	}
	return in, nil
}

// GetOrderWithDetails returns an order with its items and addon lines.
func (s *OrderService) GetOrderWithDetails(ctx context.Context, id uuid.UUID) (*OrderDetail, error) {
	detail, err := viewsync.ReadThrough(ctx, s.views, viewsync.TopicOrder, id.String(), func(ctx context.Context) (OrderDetail, error) {
		return s.loadOrderDetail(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *OrderService) loadOrderDetail(ctx context.Context, id uuid.UUID) (OrderDetail, error) {
	store := s.store()

	order, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderDetail{}, ErrOrderNotFound
		}
		return OrderDetail{}, fmt.Errorf("get order: %w", err)
	}
	items, err := store.ListOrderItemsByOrder(ctx, id)
	if err != nil {
		return OrderDetail{}, fmt.Errorf("list order items: %w", err)
	}
	addons, err := store.ListOrderItemAddonsByOrder(ctx, id)
	if err != nil {
		return OrderDetail{}, fmt.Errorf("list order item addons: %w", err)
	}

	byItem := make(map[uuid.UUID][]OrderItemAddonView)
	for _, a := range addons {
		byItem[a.OrderItemID] = append(byItem[a.OrderItemID], OrderItemAddonView{
			ID:         a.ID,
			AddonID:    a.AddonID,
			Name:       a.AddonName,
			Quantity:   a.Quantity,
			UnitPrice:  money(a.UnitPrice),
			TotalPrice: money(a.TotalPrice),
		})
	}

	detail := OrderDetail{OrderView: toOrderView(order), Items: make([]OrderItemView, 0, len(items))}
	for _, it := range items {
		iv := OrderItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			TotalPrice:  money(it.TotalPrice),
			Notes:       optionalString(it.Notes),
			Addons:      byItem[it.ID],
		}
		if iv.Addons == nil {
			iv.Addons = []OrderItemAddonView{}
		}
		detail.Items = append(detail.Items, iv)
	}
	return detail, nil
}

// ListOrdersParams filters the orders table. Page is 1-based.
type ListOrdersParams struct {
	Page   int
	Limit  int
	Search string
	Status string
}

func (p ListOrdersParams) normalize() ListOrdersParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	p.Search = strings.TrimSpace(p.Search)
	p.Status = strings.TrimSpace(p.Status)
	return p
}

func (p ListOrdersParams) cacheKey() string {
	return "p" + strconv.Itoa(p.Page) + ":l" + strconv.Itoa(p.Limit) + ":s=" + p.Status + ":q=" + p.Search
}

// ListOrders returns a page of live orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, params ListOrdersParams) (*OrderPage, error) {
	p := params.normalize()
	page, err := viewsync.ReadThrough(ctx, s.views, viewsync.TopicOrders, p.cacheKey(), func(ctx context.Context) (OrderPage, error) {
		return s.loadOrderPage(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *OrderService) loadOrderPage(ctx context.Context, p ListOrdersParams) (OrderPage, error) {
	store := s.store()

	status := pgtype.Text{}
	if p.Status != "" {
		status = pgtype.Text{String: p.Status, Valid: true}
	}
	search := pgtype.Text{}
	if p.Search != "" {
		search = pgtype.Text{String: p.Search, Valid: true}
	}

	orders, err := store.ListOrders(ctx, database.ListOrdersParams{
		Status: status,
		Search: search,
		Limit:  int32(p.Limit),
		Offset: int32((p.Page - 1) * p.Limit),
	})
	if err != nil {
		return OrderPage{}, fmt.Errorf("list orders: %w", err)
	}
	total, err := store.CountOrders(ctx, database.CountOrdersParams{Status: status, Search: search})
	if err != nil {
		return OrderPage{}, fmt.Errorf("count orders: %w", err)
	}

	page := OrderPage{
		Orders:          make([]OrderView, 0, len(orders)),
		Total:           total,
		Page:            p.Page,
		Limit:           p.Limit,
		HasNextPage:     int64(p.Page*p.Limit) < total,
		HasPreviousPage: p.Page > 1,
	}
	for _, o := range orders {
		page.Orders = append(page.Orders, toOrderView(o))
	}
	return page, nil
}

const kanbanKey = "board"

// Kanban returns the kitchen board.
func (s *OrderService) Kanban(ctx context.Context) (*KanbanBoard, error) {
	board, err := viewsync.ReadThrough(ctx, s.views, viewsync.TopicKanban, kanbanKey, func(ctx context.Context) (KanbanBoard, error) {
		orders, err := s.store().ListKanbanOrders(ctx)
		if err != nil {
			return KanbanBoard{}, fmt.Errorf("list kanban orders: %w", err)
		}
		return newKanbanBoard(orders), nil
	})
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// NormalizeOrderNumber pads a numeric lookup to the stored width, so "42"
// finds order 000042.
func NormalizeOrderNumber(raw string) string {
	n := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if n == "" || len(n) >= enum.OrderNumberWidth || draft.DigitsOnly(n) != n {
		return n
	}
	return strings.Repeat("0", enum.OrderNumberWidth-len(n)) + n
}

// Track returns the customer-facing status of an order by number.
func (s *OrderService) Track(ctx context.Context, number string) (*TrackerView, error) {
	number = NormalizeOrderNumber(number)
	if number == "" || strings.HasPrefix(number, enum.DeletedNumberPrefix) {
		return nil, ErrOrderNotFound
	}

	view, err := viewsync.ReadThrough(ctx, s.views, viewsync.TopicTracker, number, func(ctx context.Context) (TrackerView, error) {
		order, err := s.store().GetOrderByNumber(ctx, number)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return TrackerView{}, ErrOrderNotFound
			}
			return TrackerView{}, fmt.Errorf("get order by number: %w", err)
		}
		return TrackerView{
			Number:    order.Number,
			Status:    order.Status,
			Stage:     lifecycle.TrackerStage(order.Status),
			OrderType: order.OrderType,
			Total:     money(order.Total),
			CreatedAt: order.CreatedAt,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

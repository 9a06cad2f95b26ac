package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/draft"
	"github.com/comanda-app/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	ListOrders(ctx context.Context, params service.ListOrdersParams) (*service.OrderPage, error)
	Kanban(ctx context.Context) (*service.KanbanBoard, error)
	GetOrderWithDetails(ctx context.Context, id uuid.UUID) (*service.OrderDetail, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, req service.UpdateOrderRequest) (*service.OrderView, error)
	SetStatus(ctx context.Context, id uuid.UUID, to string) (*service.OrderView, error)
	Advance(ctx context.Context, id uuid.UUID) (*service.OrderView, error)
	Cancel(ctx context.Context, id uuid.UUID) (*service.OrderView, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	DeleteOrderCascade(ctx context.Context, id uuid.UUID) error
}

// OrderHandler handles order endpoints of the admin dashboard and the public
// checkout.
type OrderHandler struct {
	svc    OrderServicer
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers admin order endpoints.
// Expected to be mounted at /admin/orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/kanban", h.Kanban)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/advance", h.Advance)
	r.Post("/{id}/cancel", h.Cancel)
	r.Delete("/{id}", h.Delete)
}

// RegisterPurgeRoutes registers the hard delete, restricted to admins.
func (h *OrderHandler) RegisterPurgeRoutes(r chi.Router) {
	r.Delete("/{id}/purge", h.Purge)
}

// RegisterPublicRoutes registers the customer checkout.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
}

// --- Request types ---

type addressRequest struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	Zip          string `json:"zip"`
}

type createOrderRequest struct {
	CustomerName     string                   `json:"customer_name"`
	CustomerPhone    string                   `json:"customer_phone"`
	OrderType        string                   `json:"order_type"`
	PaymentMethodID  string                   `json:"payment_method_id"`
	Notes            string                   `json:"notes"`
	Address          addressRequest           `json:"address"`
	DeliveryRegionID string                   `json:"delivery_region_id"`
	TableNumber      string                   `json:"table_number"`
	Items            []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string                        `json:"product_id"`
	Quantity  int32                         `json:"quantity"`
	Notes     string                        `json:"notes"`
	Addons    []createOrderItemAddonRequest `json:"addons"`
}

type createOrderItemAddonRequest struct {
	AddonID  string `json:"addon_id"`
	Quantity int32  `json:"quantity"`
}

type updateOrderRequest struct {
	CustomerName    *string `json:"customer_name"`
	CustomerPhone   *string `json:"customer_phone"`
	Notes           *string `json:"notes"`
	TableNumber     *string `json:"table_number"`
	DeliveryAddress *string `json:"delivery_address"`
	PaymentMethodID *string `json:"payment_method_id"`
	PaymentStatus   *string `json:"payment_status"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (req createOrderRequest) toService(surface string) service.CreateOrderRequest {
	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		addons := make([]service.CreateOrderItemAddonRequest, len(item.Addons))
		for j, a := range item.Addons {
			addons[j] = service.CreateOrderItemAddonRequest{AddonID: a.AddonID, Quantity: a.Quantity}
		}
		items[i] = service.CreateOrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Notes:     item.Notes,
			Addons:    addons,
		}
	}
	return service.CreateOrderRequest{
		Surface:         surface,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		OrderType:       req.OrderType,
		PaymentMethodID: req.PaymentMethodID,
		Notes:           req.Notes,
		Address: draft.Address{
			Street:       req.Address.Street,
			Number:       req.Address.Number,
			Complement:   req.Address.Complement,
			Neighborhood: req.Address.Neighborhood,
			Zip:          req.Address.Zip,
		},
		RegionID:    req.DeliveryRegionID,
		TableNumber: req.TableNumber,
		Items:       items,
	}
}

// --- Handlers ---

// Checkout handles POST /checkout.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, draft.SurfaceCheckout)
}

// Create handles POST /admin/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, draft.SurfaceAdmin)
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request, surface string) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	detail, err := h.svc.CreateOrder(r.Context(), req.toService(surface))
	if err != nil {
		writeServiceError(w, h.logger, "create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// List handles GET /admin/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := service.ListOrdersParams{
		Search: q.Get("search"),
		Status: q.Get("status"),
	}
	if s := q.Get("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > service.MaxPage {
			writeMessage(w, http.StatusBadRequest, "page must be between 1 and "+strconv.Itoa(service.MaxPage))
			return
		}
		params.Page = v
	}
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		params.Limit = v
	}

	page, err := h.svc.ListOrders(r.Context(), params)
	if err != nil {
		writeServiceError(w, h.logger, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Kanban handles GET /admin/orders/kanban.
func (h *OrderHandler) Kanban(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.Kanban(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "kanban", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Get handles GET /admin/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	detail, err := h.svc.GetOrderWithDetails(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Update handles PATCH /admin/orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}
	var req updateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.svc.UpdateOrder(r.Context(), id, service.UpdateOrderRequest{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		Notes:           req.Notes,
		TableNumber:     req.TableNumber,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethodID: req.PaymentMethodID,
		PaymentStatus:   req.PaymentStatus,
	})
	if err != nil {
		writeServiceError(w, h.logger, "update order", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateStatus handles PATCH /admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeMessage(w, http.StatusBadRequest, "status is required")
		return
	}

	view, err := h.svc.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, h.logger, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Advance handles POST /admin/orders/{id}/advance.
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	view, err := h.svc.Advance(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "advance order", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Cancel handles POST /admin/orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	view, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /admin/orders/{id}. The order is hidden, not removed.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	if err := h.svc.SoftDelete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Purge handles DELETE /admin/orders/{id}/purge.
func (h *OrderHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	if err := h.svc.DeleteOrderCascade(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "purge order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

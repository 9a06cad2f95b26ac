package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/service"
)

// DeliveryServicer defines the delivery workflow methods.
// Satisfied by *service.OrderService.
type DeliveryServicer interface {
	Deliveries(ctx context.Context, deliveryStatus string) ([]service.DeliveryView, error)
	SetRegion(ctx context.Context, orderID, regionID uuid.UUID) (*service.OrderView, error)
	AssignDriver(ctx context.Context, orderID, driverID uuid.UUID) (*service.OrderView, error)
	CompleteDelivery(ctx context.Context, orderID uuid.UUID) (*service.OrderView, error)
}

// DriverStore reads the driver pool. Satisfied by *database.Queries.
type DriverStore interface {
	ListDrivers(ctx context.Context) ([]database.Driver, error)
	GetDriver(ctx context.Context, id uuid.UUID) (database.Driver, error)
}

// DeliveryHandler handles delivery dispatch endpoints.
type DeliveryHandler struct {
	svc    DeliveryServicer
	store  DriverStore
	logger *zap.Logger
}

func NewDeliveryHandler(svc DeliveryServicer, store DriverStore, logger *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{svc: svc, store: store, logger: logger}
}

// RegisterRoutes registers delivery endpoints. Expected to be mounted at /admin.
func (h *DeliveryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/deliveries", h.List)
	r.Put("/deliveries/{id}/region", h.SetRegion)
	r.Put("/deliveries/{id}/driver", h.AssignDriver)
	r.Post("/deliveries/{id}/complete", h.Complete)
	r.Get("/drivers", h.ListDrivers)
	r.Get("/drivers/{id}", h.GetDriver)
}

type setRegionRequest struct {
	RegionID string `json:"region_id"`
}

type assignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

type driverResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// List handles GET /admin/deliveries?status=pending|in_progress|completed.
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", enum.DeliveryStatusPending, enum.DeliveryStatusInProgress, enum.DeliveryStatusCompleted:
	default:
		writeMessage(w, http.StatusBadRequest, "invalid delivery status")
		return
	}

	list, err := h.svc.Deliveries(r.Context(), status)
	if err != nil {
		writeServiceError(w, h.logger, "list deliveries", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// SetRegion handles PUT /admin/deliveries/{id}/region.
func (h *DeliveryHandler) SetRegion(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}
	var req setRegionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	regionID, err := uuid.Parse(req.RegionID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid region_id")
		return
	}

	view, err := h.svc.SetRegion(r.Context(), orderID, regionID)
	if err != nil {
		writeServiceError(w, h.logger, "set delivery region", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AssignDriver handles PUT /admin/deliveries/{id}/driver.
func (h *DeliveryHandler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}
	var req assignDriverRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	driverID, err := uuid.Parse(req.DriverID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid driver_id")
		return
	}

	view, err := h.svc.AssignDriver(r.Context(), orderID, driverID)
	if err != nil {
		writeServiceError(w, h.logger, "assign driver", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Complete handles POST /admin/deliveries/{id}/complete.
func (h *DeliveryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	view, err := h.svc.CompleteDelivery(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, h.logger, "complete delivery", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListDrivers handles GET /admin/drivers.
func (h *DeliveryHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.store.ListDrivers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list drivers", err)
		return
	}

	resp := make([]driverResponse, len(drivers))
	for i, d := range drivers {
		resp[i] = toDriverResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDriver handles GET /admin/drivers/{id}.
func (h *DeliveryHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "driver")
	if !ok {
		return
	}

	d, err := h.store.GetDriver(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeServiceError(w, h.logger, "get driver", service.ErrDriverNotFound)
			return
		}
		writeServiceError(w, h.logger, "get driver", err)
		return
	}
	writeJSON(w, http.StatusOK, toDriverResponse(d))
}

func toDriverResponse(d database.Driver) driverResponse {
	return driverResponse{
		ID:        d.ID,
		Name:      d.Name,
		Phone:     d.Phone,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
}

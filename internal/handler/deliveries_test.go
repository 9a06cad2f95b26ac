package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/handler"
	"github.com/comanda-app/api/internal/service"
)

// --- Mocks ---

type mockDeliveryService struct {
	deliveriesFn func(ctx context.Context, status string) ([]service.DeliveryView, error)
	regionFn     func(ctx context.Context, orderID, regionID uuid.UUID) (*service.OrderView, error)
	assignFn     func(ctx context.Context, orderID, driverID uuid.UUID) (*service.OrderView, error)
	completeFn   func(ctx context.Context, orderID uuid.UUID) (*service.OrderView, error)
}

func (m *mockDeliveryService) Deliveries(ctx context.Context, status string) ([]service.DeliveryView, error) {
	return m.deliveriesFn(ctx, status)
}

func (m *mockDeliveryService) SetRegion(ctx context.Context, orderID, regionID uuid.UUID) (*service.OrderView, error) {
	return m.regionFn(ctx, orderID, regionID)
}

func (m *mockDeliveryService) AssignDriver(ctx context.Context, orderID, driverID uuid.UUID) (*service.OrderView, error) {
	return m.assignFn(ctx, orderID, driverID)
}

func (m *mockDeliveryService) CompleteDelivery(ctx context.Context, orderID uuid.UUID) (*service.OrderView, error) {
	return m.completeFn(ctx, orderID)
}

type mockDriverStore struct {
	drivers []database.Driver
}

func (m *mockDriverStore) ListDrivers(context.Context) ([]database.Driver, error) {
	return m.drivers, nil
}

func (m *mockDriverStore) GetDriver(_ context.Context, id uuid.UUID) (database.Driver, error) {
	for _, d := range m.drivers {
		if d.ID == id {
			return d, nil
		}
	}
	return database.Driver{}, pgx.ErrNoRows
}

func setupDeliveryRouter(svc handler.DeliveryServicer, store handler.DriverStore) http.Handler {
	h := handler.NewDeliveryHandler(svc, store, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/admin", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestListDeliveries_StatusFilter(t *testing.T) {
	var got string
	svc := &mockDeliveryService{
		deliveriesFn: func(_ context.Context, status string) ([]service.DeliveryView, error) {
			got = status
			return []service.DeliveryView{}, nil
		},
	}
	r := setupDeliveryRouter(svc, nil)

	rr := doJSON(t, r, "GET", "/admin/deliveries?status=in_progress", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if got != enum.DeliveryStatusInProgress {
		t.Errorf("filter: got %q, want %q", got, enum.DeliveryStatusInProgress)
	}

	rr = doJSON(t, r, "GET", "/admin/deliveries?status=lost", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSetRegion_Handler(t *testing.T) {
	orderID, regionID := uuid.New(), uuid.New()
	svc := &mockDeliveryService{
		regionFn: func(_ context.Context, gotOrder, gotRegion uuid.UUID) (*service.OrderView, error) {
			if gotOrder != orderID || gotRegion != regionID {
				t.Errorf("ids: got %v/%v", gotOrder, gotRegion)
			}
			v := testOrderView(orderID, enum.OrderStatusPending)
			v.DeliveryFee = "8.00"
			return v, nil
		},
	}
	r := setupDeliveryRouter(svc, nil)

	rr := doJSON(t, r, "PUT", "/admin/deliveries/"+orderID.String()+"/region", map[string]string{
		"region_id": regionID.String(),
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["delivery_fee"] != "8.00" {
		t.Errorf("delivery_fee: got %v, want 8.00", resp["delivery_fee"])
	}
}

func TestSetRegion_InvalidRegionID(t *testing.T) {
	r := setupDeliveryRouter(&mockDeliveryService{}, nil)

	rr := doJSON(t, r, "PUT", "/admin/deliveries/"+uuid.New().String()+"/region", map[string]string{
		"region_id": "centro",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAssignDriver_Handler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"assigned", nil, http.StatusOK},
		{"no region", service.ErrRegionRequired, http.StatusConflict},
		{"busy driver", service.ErrDriverUnavailable, http.StatusConflict},
		{"unknown driver", service.ErrDriverNotFound, http.StatusNotFound},
		{"not delivery", service.ErrNotDeliveryOrder, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockDeliveryService{
				assignFn: func(_ context.Context, orderID, _ uuid.UUID) (*service.OrderView, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return testOrderView(orderID, enum.OrderStatusOutForDelivery), nil
				},
			}
			r := setupDeliveryRouter(svc, nil)

			rr := doJSON(t, r, "PUT", "/admin/deliveries/"+uuid.New().String()+"/driver", map[string]string{
				"driver_id": uuid.New().String(),
			})
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestCompleteDelivery_Handler(t *testing.T) {
	svc := &mockDeliveryService{
		completeFn: func(context.Context, uuid.UUID) (*service.OrderView, error) {
			return nil, service.ErrDeliveryNotStarted
		},
	}
	r := setupDeliveryRouter(svc, nil)

	rr := postJSON(t, r, "/admin/deliveries/"+uuid.New().String()+"/complete", nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestListDrivers(t *testing.T) {
	store := &mockDriverStore{drivers: []database.Driver{
		{ID: uuid.New(), Name: "João", Phone: "5511999990000", Status: enum.DriverStatusAvailable},
	}}
	r := setupDeliveryRouter(&mockDeliveryService{}, store)

	rr := doJSON(t, r, "GET", "/admin/drivers", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	var resp []map[string]interface{}
	decodeInto(t, rr, &resp)
	if len(resp) != 1 || resp[0]["status"] != enum.DriverStatusAvailable {
		t.Errorf("expected one available driver, got: %v", resp)
	}
}

func TestGetDriver(t *testing.T) {
	id := uuid.New()
	store := &mockDriverStore{drivers: []database.Driver{
		{ID: id, Name: "Ana", Phone: "5511999990001", Status: enum.DriverStatusBusy},
	}}
	r := setupDeliveryRouter(&mockDeliveryService{}, store)

	rr := doJSON(t, r, "GET", "/admin/drivers/"+id.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != enum.DriverStatusBusy {
		t.Errorf("status field: got %v, want %s", resp["status"], enum.DriverStatusBusy)
	}

	rr = doJSON(t, r, "GET", "/admin/drivers/"+uuid.New().String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown driver: got %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = doJSON(t, r, "GET", "/admin/drivers/not-a-uuid", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad id: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

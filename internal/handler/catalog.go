package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/service"
)

// CatalogStore defines the catalog reads. Satisfied by *database.Queries.
type CatalogStore interface {
	ListAvailableProducts(ctx context.Context) ([]database.Product, error)
	ListAddons(ctx context.Context) ([]database.ProductAddon, error)
	ListProductAddonLinks(ctx context.Context) ([]database.ProductAddonLink, error)
	ListEnabledPaymentMethods(ctx context.Context) ([]database.PaymentMethod, error)
	ListDeliveryRegions(ctx context.Context) ([]database.DeliveryRegion, error)
}

// AddonDeleter removes addons. Satisfied by *service.OrderService.
type AddonDeleter interface {
	DeleteAddon(ctx context.Context, id uuid.UUID) error
}

// CatalogHandler serves the menu and the checkout lookups.
type CatalogHandler struct {
	store  CatalogStore
	addons AddonDeleter
	logger *zap.Logger
}

func NewCatalogHandler(store CatalogStore, addons AddonDeleter, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, addons: addons, logger: logger}
}

// RegisterRoutes registers the public catalog endpoints.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.Menu)
	r.Get("/payment-methods", h.PaymentMethods)
	r.Get("/delivery-regions", h.DeliveryRegions)
}

// RegisterAdminRoutes registers addon management. Expected to be mounted at /admin.
func (h *CatalogHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/addons", h.ListAddons)
}

// RegisterAddonDeleteRoutes registers the admin-only addon delete.
func (h *CatalogHandler) RegisterAddonDeleteRoutes(r chi.Router) {
	r.Delete("/addons/{id}", h.DeleteAddon)
}

// --- Response types ---

type addonResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Price      string    `json:"price"`
	Available  bool      `json:"available"`
	IsGlobal   bool      `json:"is_global"`
	MaxOptions *int32    `json:"max_options"`
}

type menuProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Category    string          `json:"category"`
	Price       string          `json:"price"`
	Addons      []addonResponse `json:"addons"`
}

type paymentMethodResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Icon *string   `json:"icon"`
}

type deliveryRegionResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Fee  string    `json:"fee"`
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func toAddonResponse(a database.ProductAddon) addonResponse {
	resp := addonResponse{
		ID:        a.ID,
		Name:      a.Name,
		Price:     numericToString(a.Price),
		Available: a.Available,
		IsGlobal:  a.IsGlobal,
	}
	if a.MaxOptions.Valid {
		n := a.MaxOptions.Int32
		resp.MaxOptions = &n
	}
	return resp
}

// --- Handlers ---

// Menu handles GET /menu: available products, each with the available addons
// that apply to it (global or linked).
func (h *CatalogHandler) Menu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.store.ListAvailableProducts(ctx)
	if err != nil {
		writeServiceError(w, h.logger, "list products", err)
		return
	}
	addons, err := h.store.ListAddons(ctx)
	if err != nil {
		writeServiceError(w, h.logger, "list addons", err)
		return
	}
	links, err := h.store.ListProductAddonLinks(ctx)
	if err != nil {
		writeServiceError(w, h.logger, "list addon links", err)
		return
	}

	linked := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, l := range links {
		if linked[l.ProductID] == nil {
			linked[l.ProductID] = make(map[uuid.UUID]bool)
		}
		linked[l.ProductID][l.AddonID] = true
	}

	resp := make([]menuProductResponse, len(products))
	for i, p := range products {
		item := menuProductResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: textPtr(p.Description),
			Category:    p.Category,
			Price:       numericToString(p.Price),
			Addons:      []addonResponse{},
		}
		for _, a := range addons {
			if a.Available && (a.IsGlobal || linked[p.ID][a.ID]) {
				item.Addons = append(item.Addons, toAddonResponse(a))
			}
		}
		resp[i] = item
	}
	writeJSON(w, http.StatusOK, resp)
}

// PaymentMethods handles GET /payment-methods.
func (h *CatalogHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.store.ListEnabledPaymentMethods(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list payment methods", err)
		return
	}

	resp := make([]paymentMethodResponse, len(methods))
	for i, m := range methods {
		resp[i] = paymentMethodResponse{ID: m.ID, Name: m.Name, Icon: textPtr(m.Icon)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeliveryRegions handles GET /delivery-regions.
func (h *CatalogHandler) DeliveryRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.store.ListDeliveryRegions(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list delivery regions", err)
		return
	}

	resp := make([]deliveryRegionResponse, len(regions))
	for i, reg := range regions {
		resp[i] = deliveryRegionResponse{ID: reg.ID, Name: reg.Name, Fee: numericToString(reg.Fee)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAddons handles GET /admin/addons.
func (h *CatalogHandler) ListAddons(w http.ResponseWriter, r *http.Request) {
	addons, err := h.store.ListAddons(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list addons", err)
		return
	}

	resp := make([]addonResponse, len(addons))
	for i, a := range addons {
		resp[i] = toAddonResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteAddon handles DELETE /admin/addons/{id}.
func (h *CatalogHandler) DeleteAddon(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "addon")
	if !ok {
		return
	}

	if err := h.addons.DeleteAddon(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrAddonNotFound) {
			writeMessage(w, http.StatusNotFound, "addon not found")
			return
		}
		writeServiceError(w, h.logger, "delete addon", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

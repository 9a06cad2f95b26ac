package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/viewsync"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDashboardStats(ctx context.Context, arg database.GetDashboardStatsParams) (database.GetDashboardStatsRow, error)
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	GetProductSales(ctx context.Context, arg database.GetProductSalesParams) ([]database.GetProductSalesRow, error)
	GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
}

// ReportsHandler handles report endpoints. Dates are bucketed in loc.
type ReportsHandler struct {
	store  ReportsStore
	views  *viewsync.Synchronizer
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore, views *viewsync.Synchronizer, loc *time.Location, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{store: store, views: views, loc: loc, now: time.Now, logger: logger}
}

// RegisterRoutes registers report endpoints. Expected to be mounted at /admin/reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/daily-sales", h.DailySales)
	r.Get("/product-sales", h.ProductSales)
	r.Get("/payment-summary", h.PaymentSummary)
}

// --- Response types ---

type dashboardResponse struct {
	Date                 string `json:"date"`
	TotalOrders          int64  `json:"total_orders"`
	PendingOrders        int64  `json:"pending_orders"`
	PreparingOrders      int64  `json:"preparing_orders"`
	ReadyOrders          int64  `json:"ready_orders"`
	OutForDeliveryOrders int64  `json:"out_for_delivery_orders"`
	FinishedOrders       int64  `json:"finished_orders"`
	CanceledOrders       int64  `json:"canceled_orders"`
	Revenue              string `json:"revenue"`
	AverageTicket        string `json:"average_ticket"`
	ActiveDeliveries     int64  `json:"active_deliveries"`
}

type dailySalesResponse struct {
	Date              string `json:"date"`
	OrderCount        int64  `json:"order_count"`
	TotalRevenue      string `json:"total_revenue"`
	TotalDeliveryFees string `json:"total_delivery_fees"`
	NetRevenue        string `json:"net_revenue"`
}

type productSalesResponse struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	QuantitySold int64     `json:"quantity_sold"`
	TotalRevenue string    `json:"total_revenue"`
}

type paymentSummaryResponse struct {
	PaymentMethod string `json:"payment_method"`
	OrderCount    int64  `json:"order_count"`
	TotalAmount   string `json:"total_amount"`
}

// --- Handlers ---

// Dashboard returns today's counters. The view is cached per day and
// invalidated by every order change.
func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	day := start.Format("2006-01-02")

	resp, err := viewsync.ReadThrough(r.Context(), h.views, viewsync.TopicDashboard, day, func(ctx context.Context) (dashboardResponse, error) {
		row, err := h.store.GetDashboardStats(ctx, database.GetDashboardStatsParams{
			CreatedAt:   start,
			CreatedAt_2: start.AddDate(0, 0, 1),
		})
		if err != nil {
			return dashboardResponse{}, fmt.Errorf("get dashboard stats: %w", err)
		}
		return dashboardResponse{
			Date:                 day,
			TotalOrders:          row.TotalOrders,
			PendingOrders:        row.PendingOrders,
			PreparingOrders:      row.PreparingOrders,
			ReadyOrders:          row.ReadyOrders,
			OutForDeliveryOrders: row.OutForDeliveryOrders,
			FinishedOrders:       row.FinishedOrders,
			CanceledOrders:       row.CanceledOrders,
			Revenue:              numericToString(row.Revenue),
			AverageTicket:        numericToString(row.AverageTicket),
			ActiveDeliveries:     row.ActiveDeliveries,
		}, nil
	})
	if err != nil {
		writeServiceError(w, h.logger, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// DailySales returns per-day sales totals for a given date range.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := h.parseDateRange(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		CreatedAt:   startDate,
		CreatedAt_2: endDate,
		TimeZone:    h.loc.String(),
	})
	if err != nil {
		writeServiceError(w, h.logger, "get daily sales", err)
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		date := "N/A"
		if row.SaleDate.Valid {
			date = row.SaleDate.Time.Format("2006-01-02")
		}
		resp[i] = dailySalesResponse{
			Date:              date,
			OrderCount:        row.OrderCount,
			TotalRevenue:      numericToString(row.TotalRevenue),
			TotalDeliveryFees: numericToString(row.TotalDeliveryFees),
			NetRevenue:        numericToString(row.NetRevenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ProductSales returns top selling products by quantity and revenue.
func (h *ReportsHandler) ProductSales(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := h.parseDateRange(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := int32(10)
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if v > 100 {
			v = 100
		}
		limit = int32(v)
	}

	rows, err := h.store.GetProductSales(r.Context(), database.GetProductSalesParams{
		CreatedAt:   startDate,
		CreatedAt_2: endDate,
		Limit:       limit,
	})
	if err != nil {
		writeServiceError(w, h.logger, "get product sales", err)
		return
	}

	resp := make([]productSalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = productSalesResponse{
			ProductID:    row.ProductID,
			ProductName:  row.ProductName,
			QuantitySold: row.QuantitySold,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PaymentSummary returns order totals grouped by payment method.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := h.parseDateRange(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), database.GetPaymentSummaryParams{
		CreatedAt:   startDate,
		CreatedAt_2: endDate,
	})
	if err != nil {
		writeServiceError(w, h.logger, "get payment summary", err)
		return
	}

	resp := make([]paymentSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryResponse{
			PaymentMethod: row.PaymentMethod,
			OrderCount:    row.OrderCount,
			TotalAmount:   numericToString(row.TotalAmount),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseDateRange reads start_date and end_date (YYYY-MM-DD, inclusive) in the
// report timezone. Defaults to the last 30 days. The returned end is exclusive.
func (h *ReportsHandler) parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	now := h.now().In(h.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	startDate := today.AddDate(0, 0, -30)
	endDate := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		startDate = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		endDate = t.AddDate(0, 0, 1)
	}

	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}
	return startDate, endDate, nil
}

package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/config"
	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/handler"
	"github.com/comanda-app/api/internal/metrics"
	mw "github.com/comanda-app/api/internal/middleware"
	"github.com/comanda-app/api/internal/service"
	"github.com/comanda-app/api/internal/viewsync"
	"github.com/comanda-app/api/internal/ws"
)

// Deps carries what the router wires into handlers.
type Deps struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Hub     *ws.Hub
	Views   *viewsync.Synchronizer
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(d Deps) (chi.Router, error) {
	cfg := d.Config
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	queries := database.New(d.Pool)

	orderService := service.NewOrderService(d.Pool, d.Pool, func(db database.DBTX) service.Store {
		return database.New(db)
	}, d.Views, service.Options{
		DefaultDeliveryFee: cfg.DefaultDeliveryFee,
		PhoneCountryPrefix: cfg.PhoneCountryPrefix,
		Logger:             d.Logger.Named("orders"),
		Metrics:            d.Metrics,
	})

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(d.Logger.Named("http")))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := d.Pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", d.Metrics.Handler())

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
	})

	handlerLog := d.Logger.Named("handler")

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, handlerLog)
	authHandler.RegisterRoutes(r)

	catalogHandler := handler.NewCatalogHandler(queries, orderService, handlerLog)
	catalogHandler.RegisterRoutes(r)

	orderHandler := handler.NewOrderHandler(orderService, handlerLog)
	orderHandler.RegisterPublicRoutes(r)

	trackerHandler := handler.NewTrackerHandler(orderService, cfg.TrackerPollInterval, handlerLog)
	trackerHandler.RegisterRoutes(r)

	// Dashboard routes (require authentication)
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleStaff))

		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				orderHandler.RegisterPurgeRoutes(r)
			})
		})

		deliveryHandler := handler.NewDeliveryHandler(orderService, queries, handlerLog)
		deliveryHandler.RegisterRoutes(r)

		catalogHandler.RegisterAdminRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			catalogHandler.RegisterAddonDeleteRoutes(r)
		})

		reportsHandler := handler.NewReportsHandler(queries, d.Views, loc, handlerLog)
		r.Route("/reports", reportsHandler.RegisterRoutes)
	})

	d.Logger.Info("router initialized", zap.String("report_timezone", loc.String()))
	return r, nil
}

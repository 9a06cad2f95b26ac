package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/service"
)

// TrackerServicer looks up orders by their public number.
type TrackerServicer interface {
	Track(ctx context.Context, number string) (*service.TrackerView, error)
}

// TrackerHandler serves the customer order tracker. Customers poll it; the
// response tells them how often.
type TrackerHandler struct {
	svc          TrackerServicer
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewTrackerHandler(svc TrackerServicer, pollInterval time.Duration, logger *zap.Logger) *TrackerHandler {
	return &TrackerHandler{svc: svc, pollInterval: pollInterval, logger: logger}
}

func (h *TrackerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/track/{number}", h.Track)
}

// Track handles GET /track/{number}.
func (h *TrackerHandler) Track(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Track(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeServiceError(w, h.logger, "track order", err)
		return
	}

	resp := *view
	resp.PollIntervalSeconds = int(h.pollInterval / time.Second)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

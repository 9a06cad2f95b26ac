package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/draft"
	"github.com/comanda-app/api/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode JSON response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// writeServiceError maps service errors to HTTP responses. Unexpected errors
// are logged with the failing operation and returned as 500.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var verr *draft.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: verr.Fields})
	case service.IsInvalidInput(err):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case service.IsNotFound(err):
		writeMessage(w, http.StatusNotFound, err.Error())
	case service.IsConflict(err):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		logger.Error(op, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "internal server error",
			"detail": err.Error(),
		})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

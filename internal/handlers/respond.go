package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ChipTrack/internal/middleware"
	"ChipTrack/internal/service"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError переводит ошибку сервиса в HTTP-ответ.
// Неожиданные ошибки логируются; текст виден клиенту только в режиме разработки.
func writeServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, dev bool, op string, err error, notFound string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		logger.Warnw(op+": validation failed", "error", err)
		middleware.WriteError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, service.ErrJobNumberExists):
		middleware.WriteError(w, http.StatusBadRequest, "Job number already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		logger.Warnw(op+": invalid credentials")
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, service.ErrForbidden):
		middleware.WriteError(w, http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, service.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, notFound)
	default:
		logger.Errorw(op+": service error", "error", err)
		msg := "Internal server error"
		if dev {
			msg += ": " + err.Error()
		}
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON читает тело запроса; при ошибке сам отвечает 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger, op string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warnw(op+": invalid request body", "error", err)
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

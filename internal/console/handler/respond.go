package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/ran-copilot/internal/console/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError - ошибки самой консоли; сбои бэкенда сюда не попадают, их поглощают вью.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor переводит ошибки дашборда в HTTP-коды.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownView):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownKPI):
		return http.StatusNotFound
	case errors.Is(err, service.ErrViewNotMounted):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

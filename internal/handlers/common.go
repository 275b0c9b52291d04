package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/campusconnect/backend/internal/models"
	"github.com/campusconnect/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON treats an empty body as an empty object when allowEmpty is set.
func decodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeServiceError maps the service error taxonomy onto HTTP responses.
// fallback is the client-facing message for unexpected failures.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error, fallback string) {
	var validation *services.ValidationError
	var delivery *services.DeliveryError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(validation.Fields))
	case errors.Is(err, services.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
	case errors.Is(err, services.ErrProfileNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
	case errors.Is(err, services.ErrResetCodeInvalid):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid or expired code"))
	case errors.As(err, &delivery):
		logger.Error(op, zap.Error(err))
		msg := fallback
		if delivery.Message != "" {
			msg = fallback + ": " + delivery.Message
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(msg))
	default:
		logger.Error(op, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(fallback))
	}
}

func clientIP(r *http.Request) string {
	// Behind a load balancer the first X-Forwarded-For entry is the client.
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}
	return ""
}

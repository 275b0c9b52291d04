package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/campusconnect/backend/internal/models"
	"github.com/campusconnect/backend/internal/services"
)

// BootstrapHandler serves the privileged post-signup hook. It is mounted
// behind service-role auth.
type BootstrapHandler struct {
	bootstrap *services.BootstrapService
	logger    *zap.Logger
}

func NewBootstrapHandler(bootstrap *services.BootstrapService, logger *zap.Logger) *BootstrapHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BootstrapHandler{bootstrap: bootstrap, logger: logger}
}

func (h *BootstrapHandler) BootstrapProfile(w http.ResponseWriter, r *http.Request) {
	var req models.BootstrapRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(fields))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := h.bootstrap.Bootstrap(ctx, req.UserID, req.UserData, req.Senior())
	if errors.Is(err, services.ErrProfileExists) {
		writeJSON(w, http.StatusOK, models.NewMessageResponse("Profile already exists"))
		return
	}
	if err != nil {
		writeServiceError(w, h.logger.With(zap.String("user_id", req.UserID)), "bootstrap profile", err, "Failed to create profile")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Profile created successfully"))
}

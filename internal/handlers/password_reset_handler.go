package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/campusconnect/backend/internal/models"
	"github.com/campusconnect/backend/internal/services"
)

type PasswordResetHandler struct {
	resets *services.PasswordResetService
	logger *zap.Logger
}

func NewPasswordResetHandler(resets *services.PasswordResetService, logger *zap.Logger) *PasswordResetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordResetHandler{resets: resets, logger: logger}
}

func (h *PasswordResetHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req models.RequestResetCodeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := h.resets.RequestCode(ctx, req.Email); err != nil {
		writeServiceError(w, h.logger, "request reset code", err, "Failed to send reset code")
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("If an account exists for this email, a reset code has been sent"))
}

func (h *PasswordResetHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyResetCodeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := h.resets.Verify(ctx, req.Email, req.Code, req.NewPassword); err != nil {
		writeServiceError(w, h.logger, "verify reset code", err, "Failed to verify reset code")
		return
	}

	msg := "Code verified"
	if req.NewPassword != "" {
		msg = "Password updated successfully"
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse(msg))
}

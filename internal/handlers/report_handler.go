package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusconnect/backend/internal/models"
	"github.com/campusconnect/backend/internal/services"
)

type ReportHandler struct {
	reports  *services.ReportService
	verifier services.HumanVerifier
	logger   *zap.Logger
}

// NewReportHandler accepts a nil or disabled verifier, in which case no
// challenge token is required.
func NewReportHandler(reports *services.ReportService, verifier services.HumanVerifier, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, verifier: verifier, logger: logger}
}

func (h *ReportHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitReportRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ref := generateReportReference()
	logger := h.logger.With(zap.String("reference", ref))

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	// Local validation runs before the challenge token is spent.
	if _, _, err := h.reports.Validate(req.ReportData, req.ReceiverEmail); err != nil {
		writeServiceError(w, logger, "validate report", err, "Invalid report")
		return
	}

	if h.verifier != nil && h.verifier.Enabled() {
		token := strings.TrimSpace(req.RecaptchaToken)
		if token == "" {
			writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
				"recaptchaToken": "reCAPTCHA token is required",
			}))
			return
		}
		remoteIP := clientIP(r)
		ok, reason, err := h.verifier.Verify(ctx, token, remoteIP)
		if err != nil {
			logger.Error("recaptcha error", zap.String("ip", remoteIP), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to verify reCAPTCHA"))
			return
		}
		if !ok {
			logger.Warn("recaptcha failed", zap.String("ip", remoteIP), zap.String("reason", reason))
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("reCAPTCHA verification failed"))
			return
		}
	}

	result, err := h.reports.Submit(ctx, req.ReportData, req.ReceiverEmail)
	if err != nil {
		writeServiceError(w, logger, "submit report", err, "Failed to send report")
		return
	}

	logger.Info("report sent", zap.String("recipient", result.Recipient))
	writeJSON(w, http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   "Report sent successfully",
		Recipient: result.Recipient,
		Data:      map[string]string{"reference": ref},
	})
}

func generateReportReference() string {
	// Example: CC-20260131-032508-A1B2C3D4
	now := time.Now().UTC().Format("20060102-150405")
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if len(id) > 8 {
		id = id[:8]
	}
	return "CC-" + now + "-" + id
}

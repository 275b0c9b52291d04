package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/campusconnect/backend/internal/middleware"
	"github.com/campusconnect/backend/internal/models"
	"github.com/campusconnect/backend/internal/services"
)

type ProfileHandler struct {
	profiles *services.ProfileResolver
	logger   *zap.Logger
}

func NewProfileHandler(profiles *services.ProfileResolver, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// authorize returns the caller's identity and the {role} path segment, or
// writes the error response itself.
func (h *ProfileHandler) authorize(w http.ResponseWriter, r *http.Request) (models.UserIdentity, models.Role, bool) {
	ident := middleware.GetIdentity(r.Context())
	if ident.ID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return ident, "", false
	}
	role := models.Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Unknown profile type"))
		return ident, "", false
	}
	return ident, role, true
}

// GetProfile resolves (and lazily creates) the caller's junior or senior
// profile. ?refresh=true bypasses the cache.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ident, role, ok := h.authorize(w, r)
	if !ok {
		return
	}
	refresh := r.URL.Query().Get("refresh") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var (
		data interface{}
		err  error
	)
	switch role {
	case models.RoleJunior:
		data, err = h.profiles.ResolveJunior(ctx, ident, refresh)
	case models.RoleSenior:
		data, err = h.profiles.ResolveSenior(ctx, ident, refresh)
	}
	if err != nil {
		writeServiceError(w, h.logger.With(zap.String("user_id", ident.ID)), "resolve profile", err, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(data))
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ident, role, ok := h.authorize(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var (
		data interface{}
		err  error
	)
	switch role {
	case models.RoleJunior:
		var req models.UpdateJuniorRequest
		if decodeErr := decodeJSON(r, &req, false); decodeErr != nil {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
			return
		}
		if fields := req.Validate(); len(fields) > 0 {
			writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(fields))
			return
		}
		data, err = h.profiles.UpdateJunior(ctx, ident, &req)
	case models.RoleSenior:
		var req models.UpdateSeniorRequest
		if decodeErr := decodeJSON(r, &req, false); decodeErr != nil {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
			return
		}
		if fields := req.Validate(); len(fields) > 0 {
			writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(fields))
			return
		}
		data, err = h.profiles.UpdateSenior(ctx, ident, &req)
	}
	if err != nil {
		writeServiceError(w, h.logger.With(zap.String("user_id", ident.ID)), "update profile", err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(data))
}

// AssignAvatar is idempotent: once a profile has an avatar the same one is
// returned on every call.
func (h *ProfileHandler) AssignAvatar(w http.ResponseWriter, r *http.Request) {
	ident, role, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req models.AssignAvatarRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	gender := models.ParseGender(req.Gender)
	if req.Gender != "" && gender == "" {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
			"gender": "Gender must be male or female",
		}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	avatar, err := h.profiles.AssignAvatar(ctx, role, ident, gender)
	if err != nil {
		writeServiceError(w, h.logger.With(zap.String("user_id", ident.ID)), "assign avatar", err, "Failed to assign avatar")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(avatar))
}

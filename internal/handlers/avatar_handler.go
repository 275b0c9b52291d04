package handlers

import (
	"net/http"
	"strings"

	"github.com/campusconnect/backend/internal/models"
	"github.com/campusconnect/backend/internal/services"
)

type AvatarHandler struct {
	catalog *services.AvatarCatalog
}

func NewAvatarHandler(catalog *services.AvatarCatalog) *AvatarHandler {
	return &AvatarHandler{catalog: catalog}
}

func (h *AvatarHandler) ListAvatars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"male":     h.catalog.Male,
		"female":   h.catalog.Female,
		"defaults": []models.Avatar{h.catalog.DefaultMale, h.catalog.DefaultFemale},
	}))
}

func (h *AvatarHandler) ResolveAvatar(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.URL.Query().Get("ref"))
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing ref"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(h.catalog.Resolve(ref)))
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
)

// PhotoHandler proxies provider photo bytes so the client never sees the
// provider API key
type PhotoHandler struct {
	places interfaces.PlacesService
	logger arbor.ILogger
}

func NewPhotoHandler(places interfaces.PlacesService, logger arbor.ILogger) *PhotoHandler {
	return &PhotoHandler{
		places: places,
		logger: logger,
	}
}

// PhotoProxyHandler streams one provider photo.
// GET /api/photos?ref=<photoRef>&max_width=400
func (h *PhotoHandler) PhotoProxyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	photoRef := strings.TrimSpace(r.URL.Query().Get("ref"))
	if photoRef == "" {
		WriteError(w, http.StatusBadRequest, "ref is required")
		return
	}
	maxWidth := QueryInt(r, "max_width", 400)

	data, contentType, err := h.places.FetchPhoto(r.Context(), photoRef, maxWidth)
	if err != nil {
		h.logger.Warn().Err(err).Str("photo_ref", photoRef).Msg("Photo fetch failed")
		WriteError(w, http.StatusBadGateway, "Photo fetch failed: "+err.Error())
		return
	}

	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
)

// GeocodeHandler resolves free-text locations to coordinates for session
// setup
type GeocodeHandler struct {
	geocode interfaces.GeocodeService
	logger  arbor.ILogger
}

func NewGeocodeHandler(geocode interfaces.GeocodeService, logger arbor.ILogger) *GeocodeHandler {
	return &GeocodeHandler{
		geocode: geocode,
		logger:  logger,
	}
}

// GeocodeAddressHandler resolves an address.
// GET /api/geocode?address=Brooklyn,+NY
func (h *GeocodeHandler) GeocodeAddressHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		WriteError(w, http.StatusBadRequest, "address is required")
		return
	}

	result, err := h.geocode.Geocode(r.Context(), address)
	if err != nil {
		h.logger.Warn().Err(err).Str("address", address).Msg("Geocode failed")
		WriteError(w, http.StatusBadGateway, "Geocoding failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

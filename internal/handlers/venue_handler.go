// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
	"github.com/ternarybob/locus/internal/services/venues"
)

// VenueHandler exposes the venue store and provider search over REST
type VenueHandler struct {
	places       interfaces.PlacesService
	venueService *venues.Service
	logger       arbor.ILogger
}

func NewVenueHandler(places interfaces.PlacesService, venueService *venues.Service, logger arbor.ILogger) *VenueHandler {
	return &VenueHandler{
		places:       places,
		venueService: venueService,
		logger:       logger,
	}
}

type searchRequest struct {
	Query    string  `json:"query"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
}

// SearchHandler runs a provider text search and persists the results.
// POST /api/venues/search
func (h *VenueHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.RadiusKm <= 0 {
		req.RadiusKm = 25
	}

	found, err := h.places.SearchText(r.Context(), req.Query, req.Lat, req.Lng, req.RadiusKm*1000)
	if err != nil {
		h.logger.Warn().Err(err).Str("query", req.Query).Msg("Provider search failed")
		WriteError(w, http.StatusBadGateway, "Search provider unavailable: "+err.Error())
		return
	}

	stored, err := h.venueService.UpsertBatch(r.Context(), found)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to store venues: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(stored),
		"venues": stored,
	})
}

// NearbyHandler returns stored venues near a point, or by explicit
// place ID list.
// GET /api/venues/nearby?lat=&lng=&radius_km=&limit= or ?place_ids=a,b,c
func (h *VenueHandler) NearbyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if placeIDs := r.URL.Query().Get("place_ids"); placeIDs != "" {
		ids := strings.Split(placeIDs, ",")
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
		found, err := h.venueService.ByPlaceIDs(r.Context(), ids)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Lookup failed: "+err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"count":  len(found),
			"venues": found,
		})
		return
	}

	lat, latOK := QueryFloat(r, "lat")
	lng, lngOK := QueryFloat(r, "lng")
	if !latOK || !lngOK {
		WriteError(w, http.StatusBadRequest, "lat and lng are required (or pass place_ids)")
		return
	}
	radiusKm, ok := QueryFloat(r, "radius_km")
	if !ok || radiusKm <= 0 {
		radiusKm = 25
	}
	limit := QueryInt(r, "limit", 60)

	found, err := h.venueService.Nearby(r.Context(), lat, lng, radiusKm, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Nearby query failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(found),
		"venues": found,
	})
}

// GetVenueHandler returns one venue by ID or place ID.
// GET /api/venues/{id}
func (h *VenueHandler) GetVenueHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/venues/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "Invalid venue ID")
		return
	}

	venue, err := h.venueService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrVenueNotFound) {
			WriteJSON(w, http.StatusNotFound, map[string]interface{}{
				"error": "Not Found",
				"id":    id,
			})
			return
		}
		WriteError(w, http.StatusInternalServerError, "Lookup failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, venue)
}

// FilterHandler returns stored venues matching a structured filter.
// POST /api/venues/filter
func (h *VenueHandler) FilterHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var filter models.VenueFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	found, err := h.venueService.Filter(r.Context(), &filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Filter query failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(found),
		"venues": found,
	})
}

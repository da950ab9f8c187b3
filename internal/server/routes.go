package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route - chat sessions
	mux.HandleFunc("/ws/chat", s.app.ChatHandler.HandleChatSocket)

	// API routes - Venues
	mux.HandleFunc("/api/venues/search", s.app.VenueHandler.SearchHandler)  // POST - provider search + upsert
	mux.HandleFunc("/api/venues/filter", s.app.VenueHandler.FilterHandler)  // POST - structured store filter
	mux.HandleFunc("/api/venues/nearby", s.app.VenueHandler.NearbyHandler)  // GET - bounding box or place_ids
	mux.HandleFunc("/api/venues/", s.app.VenueHandler.GetVenueHandler)      // GET /{id}

	// API routes - Location helpers
	mux.HandleFunc("/api/geocode", s.app.GeocodeHandler.GeocodeAddressHandler) // GET ?address=
	mux.HandleFunc("/api/photos", s.app.PhotoHandler.PhotoProxyHandler)        // GET ?ref=&max_width=

	// API routes - Chat
	mux.HandleFunc("/api/chat/health", s.app.ChatHandler.HealthHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

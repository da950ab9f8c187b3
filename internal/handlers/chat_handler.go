// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:00:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/locus/internal/common"
	"github.com/ternarybob/locus/internal/interfaces"
	"github.com/ternarybob/locus/internal/models"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

var errBadSearchContext = errors.New("lat and lng query parameters are required")

// inboundFrame is one client message on the chat socket
type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ChatHandler serves the chat websocket: one connection owns one session,
// turns stream back as transcript delta frames.
type ChatHandler struct {
	chatService  interfaces.ChatService
	config       *common.WebSocketConfig
	logger       arbor.ILogger
	writeTimeout time.Duration
	pingInterval time.Duration
}

func NewChatHandler(chatService interfaces.ChatService, config *common.WebSocketConfig, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		config:       config,
		logger:       logger,
		writeTimeout: common.ParseDuration(config.WriteTimeout, 10*time.Second),
		pingInterval: common.ParseDuration(config.PingInterval, 30*time.Second),
	}
}

// HealthHandler reports whether the model provider behind the chat
// service is reachable.
// GET /api/chat/health
func (h *ChatHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if err := h.chatService.HealthCheck(r.Context()); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// HandleChatSocket upgrades the connection and runs the session loop.
// GET /ws/chat?lat=&lng=&radius_km=&location=
func (h *ChatHandler) HandleChatSocket(w http.ResponseWriter, r *http.Request) {
	searchCtx, err := parseSearchContext(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if h.config.ReadLimit > 0 {
		conn.SetReadLimit(h.config.ReadLimit)
	}

	// connCtx ends when the connection goes away; it bounds every turn
	connCtx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var writeMu sync.Mutex
	writeJSON := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteJSON(v); err != nil {
			cancel()
			return err
		}
		return nil
	}

	sessionID, err := h.chatService.StartSession(connCtx, searchCtx)
	if err != nil {
		writeJSON(map[string]string{"type": "error", "error": err.Error()})
		return
	}
	defer h.chatService.EndSession(context.Background(), sessionID)

	h.logger.Info().
		Str("session_id", sessionID).
		Str("remote", r.RemoteAddr).
		Str("location", searchCtx.Location).
		Msg("Chat socket connected")

	writeJSON(map[string]string{"type": "session", "session_id": sessionID})

	common.SafeGo(h.logger, "chat-socket-ping", func() {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-connCtx.Done():
				return
			case <-ticker.C:
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					cancel()
					return
				}
			}
		}
	})

	limiter := h.newMessageLimiter()

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Chat socket read error")
			}
			return
		}

		switch frame.Type {
		case "message":
			if strings.TrimSpace(frame.Text) == "" {
				writeJSON(map[string]string{"type": "error", "error": "message text is required"})
				continue
			}
			if limiter != nil && !limiter.Allow() {
				writeJSON(map[string]string{"type": "error", "error": "message rate limit exceeded, slow down"})
				continue
			}

			sink := func(event models.StreamEvent) {
				writeJSON(event)
			}
			if _, err := h.chatService.Turn(connCtx, sessionID, frame.Text, sink); err != nil {
				// The sink already carried the error frame; a cancelled
				// context means the client is gone
				if connCtx.Err() != nil {
					return
				}
			}

		case "ping":
			writeJSON(map[string]string{"type": "pong"})

		default:
			writeJSON(map[string]string{"type": "error", "error": "unknown frame type: " + frame.Type})
		}
	}
}

func (h *ChatHandler) newMessageLimiter() *rate.Limiter {
	if h.config.MessagesPerMin <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(h.config.MessagesPerMin)), h.config.MessagesPerMin)
}

// parseSearchContext reads the session search context from the upgrade
// request's query string
func parseSearchContext(r *http.Request) (models.SearchContext, error) {
	lat, latOK := QueryFloat(r, "lat")
	lng, lngOK := QueryFloat(r, "lng")
	if !latOK || !lngOK {
		return models.SearchContext{}, errBadSearchContext
	}
	radiusKm, _ := QueryFloat(r, "radius_km")

	return models.SearchContext{
		Latitude:  lat,
		Longitude: lng,
		RadiusKm:  radiusKm,
		Location:  strings.TrimSpace(r.URL.Query().Get("location")),
	}, nil
}

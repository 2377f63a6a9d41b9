package handlers

import (
	"net/http"
	"slices"

	"github.com/Dias221467/agency-portal/internal/realtime"
	"github.com/Dias221467/agency-portal/internal/services"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type ChatHandler struct {
	Service  *services.ChatService
	Hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewChatHandler accepts WebSocket handshakes only from allowedOrigins.
// Requests without an Origin header (non-browser clients) are accepted.
func NewChatHandler(service *services.ChatService, hub *realtime.Hub, allowedOrigins []string) *ChatHandler {
	return &ChatHandler{
		Service: service,
		Hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// GET /ws?token=
func (h *ChatHandler) ChatWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	h.Hub.Serve(r.Context(), conn, u)
}

// GET /conversations
func (h *ChatHandler) ConversationsHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeData(w, h.Service.Conversations(u))
}

// GET /projects/{id}/messages
func (h *ChatHandler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}
	conv, err := h.Service.GetChat(u, projectID)
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}
	writeData(w, conv)
}

// POST /projects/{id}/messages. The message shows up in the conversation
// once the realtime subscription delivers it, hence 202.
func (h *ChatHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.Service.SendMessage(r.Context(), u, projectID, req.Text)
	if err != nil {
		writeError(w, err, res)
		return
	}
	writeResult(w, http.StatusAccepted, res.Deltas[0].Row, res)
}

// POST /projects/{id}/messages/read
func (h *ChatHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}

	res, err := h.Service.MarkRead(r.Context(), u, projectID)
	if err != nil {
		writeError(w, err, res)
		return
	}
	writeResult(w, http.StatusOK, map[string]int{"updated": len(res.Deltas)}, res)
}

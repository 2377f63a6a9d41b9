// Package realtime pushes chat messages, notifications and typing indicators
// to connected browsers.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

// Event is what the hub writes to a socket.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Typing is relayed to the other participants of a project.
type Typing struct {
	ProjectID primitive.ObjectID `json:"projectId"`
	UserID    primitive.ObjectID `json:"userId"`
	Name      string             `json:"name"`
	Typing    bool               `json:"typing"`
}

// Presence is broadcast when a user's first socket opens or last socket closes.
type Presence struct {
	UserID primitive.ObjectID `json:"userId"`
	Status string             `json:"status"`
}

type inbound struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId"`
	Typing    bool   `json:"typing"`
}

type client struct {
	user models.User
	conn *websocket.Conn
	send chan Event
}

// Hub is the registry of open sockets, keyed by user. A user may hold
// several sockets (one per tab).
type Hub struct {
	store *state.Store

	mu      sync.RWMutex
	clients map[primitive.ObjectID]map[*client]struct{}
}

func NewHub(store *state.Store) *Hub {
	return &Hub{
		store:   store,
		clients: make(map[primitive.ObjectID]map[*client]struct{}),
	}
}

// Publish queues an event on every socket of userID. Slow sockets drop events.
func (h *Hub) Publish(userID primitive.ObjectID, event string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- Event{Type: event, Data: payload}:
		default:
			logrus.WithFields(logrus.Fields{
				"userID": userID.Hex(),
				"event":  event,
			}).Warn("WebSocket send buffer full, dropping event")
		}
	}
}

// Online reports whether userID has at least one open socket.
func (h *Hub) Online(userID primitive.ObjectID) bool {
	return h.Sockets(userID) > 0
}

// Sockets is the number of open sockets of userID.
func (h *Hub) Sockets(userID primitive.ObjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve runs conn for u until the socket fails or ctx ends. It closes conn.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, u models.User) {
	c := &client{user: u, conn: conn, send: make(chan Event, sendBuffer)}
	h.register(c)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()

	h.readPump(c)

	h.unregister(c)
	<-done
	conn.Close()
}

// Close drops every socket, used on shutdown.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		for c := range set {
			c.conn.Close()
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	set, ok := h.clients[c.user.ID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.user.ID] = set
	}
	set[c] = struct{}{}
	first := len(set) == 1
	h.mu.Unlock()

	logrus.WithField("userID", c.user.ID.Hex()).Info("WebSocket connected")
	if first {
		h.broadcast("presence", Presence{UserID: c.user.ID, Status: "online"})
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	set := h.clients[c.user.ID]
	delete(set, c)
	last := len(set) == 0
	if last {
		delete(h.clients, c.user.ID)
	}
	close(c.send)
	h.mu.Unlock()

	logrus.WithField("userID", c.user.ID.Hex()).Info("WebSocket disconnected")
	if last {
		h.broadcast("presence", Presence{UserID: c.user.ID, Status: "offline"})
	}
}

func (h *Hub) broadcast(event string, payload interface{}) {
	h.mu.RLock()
	ids := make([]primitive.ObjectID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Publish(id, event, payload)
	}
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("userID", c.user.ID.Hex()).Warn("WebSocket read error")
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			logrus.WithError(err).Debug("Ignoring malformed WebSocket message")
			continue
		}
		if msg.Type == "typing" {
			h.relayTyping(c.user, msg)
		}
	}
}

func (h *Hub) relayTyping(u models.User, msg inbound) {
	projectID, err := primitive.ObjectIDFromHex(msg.ProjectID)
	if err != nil {
		return
	}
	snap := h.store.Snapshot()
	project, ok := snap.Project(projectID)
	if !ok || !scope.CanSeeProject(u, projectID, snap) {
		return
	}

	event := Typing{ProjectID: projectID, UserID: u.ID, Name: u.Name, Typing: msg.Typing}
	for _, p := range scope.Participants(project, snap) {
		if p.ID != u.ID {
			h.Publish(p.ID, "typing", event)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				logrus.WithError(err).WithField("userID", c.user.ID.Hex()).Warn("WebSocket write failed")
				c.conn.Close()
				drain(c.send)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				drain(c.send)
				return
			}
		}
	}
}

// drain consumes events until unregister closes the channel.
func drain(send <-chan Event) {
	for range send {
	}
}

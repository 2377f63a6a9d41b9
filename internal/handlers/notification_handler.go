package handlers

import (
	"net/http"

	"github.com/Dias221467/agency-portal/internal/services"
)

type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// GET /notifications
func (h *NotificationHandler) GetUserNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeData(w, map[string]interface{}{
		"notifications": h.Service.GetUserNotifications(u),
		"unread":        h.Service.UnreadCount(u),
	})
}

// POST /notifications/{id}/read
func (h *NotificationHandler) MarkAsReadHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}

	res, err := h.Service.MarkNotificationAsRead(r.Context(), u, id)
	if err != nil {
		writeError(w, err, res)
		return
	}
	writeResult(w, http.StatusOK, res.Deltas[0].Row, res)
}

// POST /notifications/read-all
func (h *NotificationHandler) MarkAllAsReadHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.Service.MarkAllAsRead(r.Context(), u)
	if err != nil {
		writeError(w, err, res)
		return
	}
	writeResult(w, http.StatusOK, map[string]int{"updated": len(res.Deltas)}, res)
}

// DELETE /notifications/{id}
func (h *NotificationHandler) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}

	res, err := h.Service.DeleteNotification(r.Context(), u, id)
	if err != nil {
		writeError(w, err, res)
		return
	}
	writeResult(w, http.StatusOK, nil, res)
}

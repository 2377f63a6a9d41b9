package handlers

import (
	"net/http"

	"github.com/Dias221467/agency-portal/internal/badges"
	"github.com/Dias221467/agency-portal/internal/navigation"
	"github.com/Dias221467/agency-portal/internal/services"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/gorilla/mux"
)

// PortalHandler serves the role menu, badge counts and rendered views.
type PortalHandler struct {
	Store    *state.Store
	Activity *services.ActivityService
}

func NewPortalHandler(store *state.Store, activity *services.ActivityService) *PortalHandler {
	return &PortalHandler{Store: store, Activity: activity}
}

// GET /navigation
func (h *PortalHandler) NavigationHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeData(w, navigation.Menu(u, h.Store.Snapshot()))
}

// GET /badges
func (h *PortalHandler) BadgesHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	snap := h.Store.Snapshot()
	dests := make([]badges.Destination, 0)
	for _, item := range navigation.Menu(u, snap) {
		dests = append(dests, item.View)
	}
	writeData(w, badges.All(u, snap, dests))
}

// GET /views/{view}
func (h *PortalHandler) ViewHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	view, err := navigation.Render(u, h.Store.Snapshot(), badges.Destination(mux.Vars(r)["view"]))
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}
	writeData(w, view)
}

// GET /activity
func (h *PortalHandler) ActivityHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeData(w, h.Activity.GetRecentActivities(u, 50))
}

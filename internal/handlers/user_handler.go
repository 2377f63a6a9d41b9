package handlers

import (
	"net/http"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/services"
	log "github.com/sirupsen/logrus"
)

// UserHandler handles login, the current profile and account creation.
type UserHandler struct {
	Service       *services.UserService
	Notifications *services.NotificationService
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(service *services.UserService, notifications *services.NotificationService) *UserHandler {
	return &UserHandler{Service: service, Notifications: notifications}
}

// LoginUserHandler handles user login.
func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("LoginUserHandler called")
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &credentials); err != nil {
		badRequest(w, err)
		return
	}

	token, user, err := h.Service.Login(credentials.Email, credentials.Password)
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}

	log.WithField("userID", user.ID.Hex()).Info("User logged in successfully")
	writeData(w, map[string]interface{}{
		"token": token,
		"user":  user.Public(),
	})
}

// MeHandler returns the signed-in user.
func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeData(w, map[string]interface{}{
		"user":                u,
		"unreadNotifications": h.Notifications.UnreadCount(u),
	})
}

// RegisterUserHandler lets an admin create an account. Admin accounts sign
// in with the shared admin password and ignore the password field.
func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name     string      `json:"name"`
		Email    string      `json:"email"`
		Role     models.Role `json:"role"`
		Password string      `json:"password"`
	}
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	user := models.User{Name: req.Name, Email: req.Email, Role: req.Role}
	res, err := h.Service.RegisterUser(r.Context(), u, user, req.Password)
	if err != nil {
		log.WithError(err).Warn("Failed to register user")
		writeError(w, err, res)
		return
	}
	created := res.Deltas[0].Row.(models.User)
	log.WithField("userID", created.ID.Hex()).Info("User registered successfully")
	writeResult(w, http.StatusCreated, created.Public(), res)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/navigation"
	"github.com/Dias221467/agency-portal/internal/notify"
	"github.com/Dias221467/agency-portal/internal/services"
	"github.com/Dias221467/agency-portal/pkg/middleware"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

var errBadID = errors.New("invalid id")

// envelope is the body of every JSON response.
type envelope struct {
	Data  interface{}   `json:"data,omitempty"`
	Toast *notify.Toast `json:"toast,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, toast *notify.Toast) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data, Toast: toast}); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data, nil)
}

// writeResult answers a successful mutation with its toast.
func writeResult(w http.ResponseWriter, status int, data interface{}, res services.Result) {
	toast := res.Toast
	writeJSON(w, status, data, &toast)
}

// writeError maps err to a status code. The toast is always ERROR; res.Toast
// is used when the mutation produced one.
func writeError(w http.ResponseWriter, err error, res services.Result) {
	toast := res.Toast
	if toast.Kind == "" {
		toast = notify.Error("%s", messageFor(err))
	}
	writeJSON(w, statusFor(err), nil, &toast)
}

func statusFor(err error) int {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, services.ErrInvalid),
		errors.Is(err, models.ErrUnknownField), errors.Is(err, errBadID):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound), errors.Is(err, navigation.ErrUnknownView):
		return http.StatusNotFound
	case errors.Is(err, services.ErrLastAdmin):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func messageFor(err error) string {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Reason
	case errors.Is(err, models.ErrUnknownField), errors.Is(err, errBadID):
		return err.Error()
	case errors.Is(err, services.ErrInvalid):
		return "Invalid request payload"
	case errors.Is(err, services.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, services.ErrForbidden):
		return "You are not allowed to do this"
	case errors.Is(err, services.ErrNotFound):
		return "Not found"
	case errors.Is(err, navigation.ErrUnknownView):
		return "Unknown view"
	case errors.Is(err, services.ErrLastAdmin):
		return "Cannot remove the last admin account"
	}
	return "Something went wrong, please try again"
}

// badRequest answers a payload that could not be decoded.
func badRequest(w http.ResponseWriter, err error) {
	log.WithError(err).Warn("Invalid request payload")
	toast := notify.Error("Invalid request payload")
	writeJSON(w, http.StatusBadRequest, nil, &toast)
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// currentUser returns the user resolved by the CurrentUser middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	u, ok := middleware.GetCurrentUser(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return u, ok
}

func pathID(r *http.Request, key string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[key])
	if err != nil {
		return primitive.NilObjectID, errBadID
	}
	return id, nil
}

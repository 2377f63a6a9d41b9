package handlers

import (
	"net/http"

	"github.com/Dias221467/agency-portal/internal/config"
	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/realtime"
	"github.com/Dias221467/agency-portal/internal/services"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/Dias221467/agency-portal/pkg/middleware"
	"github.com/gorilla/mux"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Store         *state.Store
	Mutator       *services.Mutator
	Users         *services.UserService
	Chat          *services.ChatService
	Notifications *services.NotificationService
	Activity      *services.ActivityService
	Hub           *realtime.Hub
}

// NewRouter registers every route. Everything except login requires a
// valid token whose user still exists.
func NewRouter(d Deps) *mux.Router {
	userHandler := NewUserHandler(d.Users, d.Notifications)
	portalHandler := NewPortalHandler(d.Store, d.Activity)
	chatHandler := NewChatHandler(d.Chat, d.Hub, d.Config.AllowedOrigins)
	notificationHandler := NewNotificationHandler(d.Notifications)
	fileHandler := NewFileHandler(d.Store, d.Mutator, d.Config.UploadDir)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/auth/login", userHandler.LoginUserHandler).Methods("POST")

	protected := router.NewRoute().Subrouter()
	protected.Use(middleware.AuthMiddleware(d.Config.JWTSecret))
	protected.Use(middleware.CurrentUser(d.Users))

	protected.HandleFunc("/me", userHandler.MeHandler).Methods("GET")
	protected.HandleFunc("/navigation", portalHandler.NavigationHandler).Methods("GET")
	protected.HandleFunc("/badges", portalHandler.BadgesHandler).Methods("GET")
	protected.HandleFunc("/views/{view}", portalHandler.ViewHandler).Methods("GET")
	protected.HandleFunc("/activity", portalHandler.ActivityHandler).Methods("GET")

	users := NewResourceHandler[models.User](d.Store, d.Mutator, visibleUsers)
	protected.HandleFunc("/users", users.List).Methods("GET")
	protected.HandleFunc("/users/{id}", users.Get).Methods("GET")
	protected.Handle("/users", adminOnly(userHandler.RegisterUserHandler)).Methods("POST")
	protected.Handle("/users/{id}", adminOnly(users.Update)).Methods("PATCH")
	protected.Handle("/users/{id}", adminOnly(users.Delete)).Methods("DELETE")

	crud(protected, "/clients", NewResourceHandler[models.Client](d.Store, d.Mutator, visibleClients))
	crud(protected, "/projects", NewResourceHandler[models.Project](d.Store, d.Mutator, visibleProjects))
	crud(protected, "/tasks", NewResourceHandler[models.Task](d.Store, d.Mutator, visibleTasks))
	crud(protected, "/time-logs", NewResourceHandler[models.TimeLog](d.Store, d.Mutator, visibleTimeLogs))
	crud(protected, "/invoices", NewResourceHandler[models.Invoice](d.Store, d.Mutator, visibleInvoices))
	crud(protected, "/feedback", NewResourceHandler[models.Feedback](d.Store, d.Mutator, visibleFeedback))

	protected.HandleFunc("/conversations", chatHandler.ConversationsHandler).Methods("GET")
	protected.HandleFunc("/projects/{id}/messages", chatHandler.GetChatHistory).Methods("GET")
	protected.HandleFunc("/projects/{id}/messages", chatHandler.SendMessageHandler).Methods("POST")
	protected.HandleFunc("/projects/{id}/messages/read", chatHandler.MarkReadHandler).Methods("POST")
	protected.HandleFunc("/ws", chatHandler.ChatWebSocketHandler).Methods("GET")

	protected.HandleFunc("/files", fileHandler.ListFilesHandler).Methods("GET")
	protected.HandleFunc("/projects/{id}/files", fileHandler.UploadFileHandler).Methods("POST")
	protected.HandleFunc("/files/{id}", fileHandler.DeleteFileHandler).Methods("DELETE")
	protected.HandleFunc("/uploads/{name}", fileHandler.DownloadFileHandler).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetUserNotificationsHandler).Methods("GET")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsReadHandler).Methods("POST")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsReadHandler).Methods("POST")
	protected.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotificationHandler).Methods("DELETE")

	return router
}

func crud[T models.Row](r *mux.Router, path string, h *ResourceHandler[T]) {
	r.HandleFunc(path, h.List).Methods("GET")
	r.HandleFunc(path, h.Create).Methods("POST")
	r.HandleFunc(path+"/{id}", h.Get).Methods("GET")
	r.HandleFunc(path+"/{id}", h.Update).Methods("PATCH")
	r.HandleFunc(path+"/{id}", h.Delete).Methods("DELETE")
}

func adminOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireRole(string(models.RoleAdmin))(h)
}

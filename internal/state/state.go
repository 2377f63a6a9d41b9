// Package state holds the in-memory mirror of every remote table and the
// reducer that merges remote write results into it.
package state

import (
	"github.com/Dias221467/agency-portal/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// State is one consistent snapshot of all tables. Slices are never modified
// in place; the reducer copies the slice it changes.
type State struct {
	Users         []models.User
	Clients       []models.Client
	Projects      []models.Project
	Tasks         []models.Task
	TimeLogs      []models.TimeLog
	ChatMessages  []models.ChatMessage
	Invoices      []models.Invoice
	Files         []models.ProjectFile
	Feedback      []models.Feedback
	ActivityLogs  []models.ActivityLog
	Notifications []models.PanelNotification
}

func (s State) User(id primitive.ObjectID) (models.User, bool) {
	return find(s.Users, id)
}

func (s State) Project(id primitive.ObjectID) (models.Project, bool) {
	return find(s.Projects, id)
}

func (s State) Client(id primitive.ObjectID) (models.Client, bool) {
	return find(s.Clients, id)
}

func (s State) Task(id primitive.ObjectID) (models.Task, bool) {
	return find(s.Tasks, id)
}

func (s State) Invoice(id primitive.ObjectID) (models.Invoice, bool) {
	return find(s.Invoices, id)
}

func (s State) Notification(id primitive.ObjectID) (models.PanelNotification, bool) {
	return find(s.Notifications, id)
}

// Admins returns every admin-role user.
func (s State) Admins() []models.User {
	var admins []models.User
	for _, u := range s.Users {
		if u.Role == models.RoleAdmin {
			admins = append(admins, u)
		}
	}
	return admins
}

func find[T models.Row](rows []T, id primitive.ObjectID) (T, bool) {
	for _, r := range rows {
		if r.Key() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// Rows returns the slice of s holding rows of type T.
func Rows[T models.Row](s State) []T {
	var zero T
	var rows interface{}
	switch models.TableName(zero) {
	case models.TableUsers:
		rows = s.Users
	case models.TableClients:
		rows = s.Clients
	case models.TableProjects:
		rows = s.Projects
	case models.TableTasks:
		rows = s.Tasks
	case models.TableTimeLogs:
		rows = s.TimeLogs
	case models.TableChatMessages:
		rows = s.ChatMessages
	case models.TableInvoices:
		rows = s.Invoices
	case models.TableProjectFiles:
		rows = s.Files
	case models.TableFeedback:
		rows = s.Feedback
	case models.TableActivityLogs:
		rows = s.ActivityLogs
	case models.TableNotifications:
		rows = s.Notifications
	}
	out, _ := rows.([]T)
	return out
}

// Find looks a row of type T up by id.
func Find[T models.Row](s State, id primitive.ObjectID) (T, bool) {
	return find(Rows[T](s), id)
}

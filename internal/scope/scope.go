// Package scope decides which rows a user is entitled to see.
package scope

import (
	"strings"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/state"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientFor returns the client profile whose contact e-mail equals the user's
// e-mail, ignoring case.
func ClientFor(u models.User, clients []models.Client) (models.Client, bool) {
	if u.Email == "" {
		return models.Client{}, false
	}
	for _, c := range clients {
		if strings.EqualFold(c.ContactEmail, u.Email) {
			return c, true
		}
	}
	return models.Client{}, false
}

// UsersOfClient returns the client-role users matched to the client.
func UsersOfClient(c models.Client, users []models.User) []models.User {
	var out []models.User
	for _, u := range users {
		if u.Role == models.RoleClient && u.Email != "" && strings.EqualFold(u.Email, c.ContactEmail) {
			out = append(out, u)
		}
	}
	return out
}

// Projects returns the projects relevant to u: every project for admins,
// assigned projects for employees, and the matched client's projects for clients.
func Projects(u models.User, s state.State) []models.Project {
	switch u.Role {
	case models.RoleAdmin:
		return s.Projects
	case models.RoleEmployee:
		var out []models.Project
		for _, p := range s.Projects {
			if p.HasEmployee(u.ID) {
				out = append(out, p)
			}
		}
		return out
	case models.RoleClient:
		client, ok := ClientFor(u, s.Clients)
		if !ok {
			return nil
		}
		var out []models.Project
		for _, p := range s.Projects {
			if p.ClientID == client.ID {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

// ProjectIDs is the relevant project set of u.
func ProjectIDs(u models.User, s state.State) map[primitive.ObjectID]struct{} {
	projects := Projects(u, s)
	ids := make(map[primitive.ObjectID]struct{}, len(projects))
	for _, p := range projects {
		ids[p.ID] = struct{}{}
	}
	return ids
}

// CanSeeProject reports whether projectID is in the relevant set of u.
func CanSeeProject(u models.User, projectID primitive.ObjectID, s state.State) bool {
	_, ok := ProjectIDs(u, s)[projectID]
	return ok
}

// Participants returns every user whose relevant set contains the project.
func Participants(p models.Project, s state.State) []models.User {
	var out []models.User
	for _, u := range s.Users {
		switch u.Role {
		case models.RoleAdmin:
			out = append(out, u)
		case models.RoleEmployee:
			if p.HasEmployee(u.ID) {
				out = append(out, u)
			}
		case models.RoleClient:
			if c, ok := ClientFor(u, s.Clients); ok && c.ID == p.ClientID {
				out = append(out, u)
			}
		}
	}
	return out
}

// Invoices returns the invoices a user may see: all for admins, the matched
// client's for clients, none for employees.
func Invoices(u models.User, s state.State) []models.Invoice {
	switch u.Role {
	case models.RoleAdmin:
		return s.Invoices
	case models.RoleClient:
		client, ok := ClientFor(u, s.Clients)
		if !ok {
			return nil
		}
		var out []models.Invoice
		for _, inv := range s.Invoices {
			if inv.ClientID == client.ID {
				out = append(out, inv)
			}
		}
		return out
	}
	return nil
}

// Tasks returns every task for admins and the employee's own tasks otherwise.
func Tasks(u models.User, s state.State) []models.Task {
	switch u.Role {
	case models.RoleAdmin:
		return s.Tasks
	case models.RoleEmployee:
		var out []models.Task
		for _, t := range s.Tasks {
			if t.EmployeeID == u.ID {
				out = append(out, t)
			}
		}
		return out
	}
	return nil
}

// Notifications returns the notifications owned by u.
func Notifications(u models.User, s state.State) []models.PanelNotification {
	var out []models.PanelNotification
	for _, n := range s.Notifications {
		if n.UserID == u.ID {
			out = append(out, n)
		}
	}
	return out
}

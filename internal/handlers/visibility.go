package handlers

import (
	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/state"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Staff see the whole team; clients see the people working on their projects.
func visibleUsers(u models.User, s state.State) []models.User {
	if u.Role != models.RoleClient {
		return s.Users
	}
	seen := map[primitive.ObjectID]bool{u.ID: true}
	out := []models.User{u}
	for _, p := range scope.Projects(u, s) {
		for _, member := range scope.Participants(p, s) {
			if !seen[member.ID] {
				seen[member.ID] = true
				out = append(out, member)
			}
		}
	}
	return out
}

func visibleClients(u models.User, s state.State) []models.Client {
	switch u.Role {
	case models.RoleAdmin:
		return s.Clients
	case models.RoleClient:
		if c, ok := scope.ClientFor(u, s.Clients); ok {
			return []models.Client{c}
		}
		return nil
	}
	ids := map[primitive.ObjectID]bool{}
	for _, p := range scope.Projects(u, s) {
		ids[p.ClientID] = true
	}
	var out []models.Client
	for _, c := range s.Clients {
		if ids[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func visibleProjects(u models.User, s state.State) []models.Project {
	return scope.Projects(u, s)
}

func visibleTasks(u models.User, s state.State) []models.Task {
	return scope.Tasks(u, s)
}

func visibleInvoices(u models.User, s state.State) []models.Invoice {
	return scope.Invoices(u, s)
}

func visibleTimeLogs(u models.User, s state.State) []models.TimeLog {
	var out []models.TimeLog
	for _, l := range s.TimeLogs {
		if u.Role == models.RoleAdmin || l.EmployeeID == u.ID {
			out = append(out, l)
		}
	}
	return out
}

func visibleFeedback(u models.User, s state.State) []models.Feedback {
	relevant := scope.ProjectIDs(u, s)
	var out []models.Feedback
	for _, f := range s.Feedback {
		if _, ok := relevant[f.ProjectID]; ok {
			out = append(out, f)
		}
	}
	return out
}

func visibleFiles(u models.User, s state.State) []models.ProjectFile {
	relevant := scope.ProjectIDs(u, s)
	var out []models.ProjectFile
	for _, f := range s.Files {
		if _, ok := relevant[f.ProjectID]; ok {
			out = append(out, f)
		}
	}
	return out
}

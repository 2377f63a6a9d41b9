package notify

import (
	"fmt"
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/state"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const previewLength = 80

// Router decides which panel notifications a merged change produces.
type Router struct {
	now func() time.Time
}

func NewRouter() *Router {
	return &Router{now: time.Now}
}

// Route returns the notifications to create for d, given the state before
// d was merged. The actor never notifies themself.
func (r *Router) Route(before state.State, d state.Delta, actor models.User) []models.PanelNotification {
	switch row := d.Row.(type) {
	case models.Project:
		if d.Op != state.OpUpdate {
			return nil
		}
		prev, ok := before.Project(row.ID)
		if !ok || prev.Status == row.Status {
			return nil
		}
		recipients := usersByID(before, row.AssignedEmployeeIDs)
		if client, ok := before.Client(row.ClientID); ok {
			recipients = append(recipients, scope.UsersOfClient(client, before.Users)...)
		}
		return r.build(recipients, actor, row.ID, models.NotifyProjectStatus,
			"Project status updated",
			fmt.Sprintf("%s moved from %s to %s", row.Name, prev.Status, row.Status))

	case models.ChatMessage:
		if d.Op != state.OpInsert {
			return nil
		}
		project, ok := before.Project(row.ProjectID)
		if !ok {
			return nil
		}
		return r.build(scope.Participants(project, before), actor, project.ID, models.NotifyNewMessage,
			"New message in "+project.Name, preview(row.Text))

	case models.Task:
		if d.Op == state.OpUpdate {
			prev, ok := before.Task(row.ID)
			if !ok || prev.EmployeeID == row.EmployeeID {
				return nil
			}
		} else if d.Op != state.OpInsert {
			return nil
		}
		return r.build(usersByID(before, []primitive.ObjectID{row.EmployeeID}), actor, row.ProjectID, models.NotifyNewTask,
			"New task assigned", row.Title)

	case models.ProjectFile:
		if d.Op != state.OpInsert {
			return nil
		}
		project, ok := before.Project(row.ProjectID)
		if !ok {
			return nil
		}
		return r.build(scope.Participants(project, before), actor, project.ID, models.NotifyNewFile,
			"New file in "+project.Name, row.Name)

	case models.Feedback:
		if d.Op != state.OpInsert {
			return nil
		}
		title := "New feedback"
		if project, ok := before.Project(row.ProjectID); ok {
			title = "New feedback on " + project.Name
		}
		return r.build(before.Admins(), actor, row.ProjectID, models.NotifyNewFeedback,
			title, fmt.Sprintf("Rated %d/5: %s", row.Rating, preview(row.Comment)))
	}
	return nil
}

func (r *Router) build(recipients []models.User, actor models.User, projectID primitive.ObjectID,
	kind models.NotificationType, title, description string) []models.PanelNotification {
	seen := make(map[primitive.ObjectID]bool, len(recipients))
	var out []models.PanelNotification
	for _, u := range recipients {
		if u.ID == actor.ID || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, models.PanelNotification{
			UserID:      u.ID,
			ProjectID:   projectID,
			Type:        kind,
			Title:       title,
			Description: description,
			Timestamp:   r.now(),
		})
	}
	return out
}

func usersByID(s state.State, ids []primitive.ObjectID) []models.User {
	var out []models.User
	for _, id := range ids {
		if u, ok := s.User(id); ok {
			out = append(out, u)
		}
	}
	return out
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

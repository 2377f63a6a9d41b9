// Package badges derives the navigation badge counts for a user.
//
// Every count is a pure function of the user and a state snapshot and is
// recomputed on demand. The formulas intentionally keep two quirks of the
// portal: the messages badge adds unread conversations and unread
// new-message notifications without deduplicating them, and the admin
// projects badge sums notifications, open projects and open tasks into one
// number.
package badges

import (
	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/state"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Destination is a navigation tab.
type Destination string

const (
	Dashboard     Destination = "dashboard"
	Projects      Destination = "projects"
	MyProjects    Destination = "my-projects"
	MyTasks       Destination = "my-tasks"
	Clients       Destination = "clients"
	Team          Destination = "team"
	Billing       Destination = "billing"
	ClientBilling Destination = "client-billing"
	Reports       Destination = "reports"
	Messages      Destination = "messages"
	Support       Destination = "support"
	Deliverables  Destination = "deliverables"
	TimeTracking  Destination = "time-tracking"
	Activity      Destination = "activity"
	Feedback      Destination = "feedback"
)

// Count returns the badge for dest. Destinations without a rule, and rules
// for another role, count 0.
func Count(dest Destination, u models.User, s state.State) int {
	switch dest {
	case Messages, Support:
		return unreadConversations(u, s) + unreadNotifications(u, s, models.NotifyNewMessage)

	case Projects:
		if u.Role != models.RoleAdmin {
			return 0
		}
		return unreadNotifications(u, s, models.NotifyProjectStatus, models.NotifyNewFile, models.NotifyNewTask) +
			openProjects(s.Projects) +
			openTasks(s.Tasks)

	case MyProjects:
		if u.Role != models.RoleEmployee {
			return 0
		}
		return openProjects(scope.Projects(u, s)) +
			unreadNotifications(u, s, models.NotifyProjectStatus, models.NotifyNewFile)

	case Billing:
		if u.Role != models.RoleAdmin {
			return 0
		}
		return invoicesIn(s.Invoices, models.InvoiceOverdue, models.InvoiceDraft)

	case MyTasks:
		if u.Role != models.RoleEmployee {
			return 0
		}
		return openTasks(scope.Tasks(u, s)) + unreadNotifications(u, s, models.NotifyNewTask)

	case Reports:
		if u.Role != models.RoleAdmin {
			return 0
		}
		return unreadNotifications(u, s, models.NotifyNewFeedback)

	case ClientBilling:
		if u.Role != models.RoleClient {
			return 0
		}
		return invoicesIn(scope.Invoices(u, s), models.InvoiceSent, models.InvoiceOverdue)

	case Deliverables:
		// No unread-file concept exists yet.
		return 0
	}
	return 0
}

// All returns the badge of every destination in dests.
func All(u models.User, s state.State, dests []Destination) map[Destination]int {
	counts := make(map[Destination]int, len(dests))
	for _, d := range dests {
		counts[d] = Count(d, u, s)
	}
	return counts
}

// Dot reports whether a collapsed navigation entry shows its presence dot.
func Dot(count int) bool {
	return count > 0
}

// UnreadByProject counts, per relevant project, the messages u has not read.
func UnreadByProject(u models.User, s state.State) map[primitive.ObjectID]int {
	relevant := scope.ProjectIDs(u, s)
	counts := make(map[primitive.ObjectID]int)
	for _, m := range s.ChatMessages {
		if _, ok := relevant[m.ProjectID]; !ok {
			continue
		}
		if m.UnreadBy(u.ID) {
			counts[m.ProjectID]++
		}
	}
	return counts
}

func unreadConversations(u models.User, s state.State) int {
	return len(UnreadByProject(u, s))
}

func unreadNotifications(u models.User, s state.State, kinds ...models.NotificationType) int {
	n := 0
	for _, notif := range s.Notifications {
		if notif.UserID != u.ID || notif.Read {
			continue
		}
		for _, k := range kinds {
			if notif.Type == k {
				n++
				break
			}
		}
	}
	return n
}

func openProjects(projects []models.Project) int {
	n := 0
	for _, p := range projects {
		if p.Status != models.ProjectCompleted {
			n++
		}
	}
	return n
}

func openTasks(tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Status != models.TaskCompleted {
			n++
		}
	}
	return n
}

func invoicesIn(invoices []models.Invoice, statuses ...models.InvoiceStatus) int {
	n := 0
	for _, inv := range invoices {
		for _, st := range statuses {
			if inv.Status == st {
				n++
				break
			}
		}
	}
	return n
}

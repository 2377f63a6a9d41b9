package navigation

import (
	"sort"

	"github.com/Dias221467/agency-portal/internal/badges"
	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/state"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const recentActivity = 10

type ProjectSummary struct {
	Project        models.Project `json:"project"`
	ClientName     string         `json:"clientName"`
	OpenTasks      int            `json:"openTasks"`
	CompletedTasks int            `json:"completedTasks"`
	Unread         int            `json:"unread"`
}

type ConversationSummary struct {
	ProjectID   primitive.ObjectID  `json:"projectId"`
	ProjectName string              `json:"projectName"`
	Unread      int                 `json:"unread"`
	Last        *models.ChatMessage `json:"last,omitempty"`
}

type ClientSummary struct {
	Client      models.Client `json:"client"`
	Projects    int           `json:"projects"`
	Outstanding float64       `json:"outstanding"`
}

type AdminDashboard struct {
	OpenProjects   int                  `json:"openProjects"`
	OpenTasks      int                  `json:"openTasks"`
	Clients        int                  `json:"clients"`
	Team           int                  `json:"team"`
	Outstanding    float64              `json:"outstanding"`
	Revenue        float64              `json:"revenue"`
	RecentActivity []models.ActivityLog `json:"recentActivity"`
}

type EmployeeDashboard struct {
	Projects    int           `json:"projects"`
	OpenTasks   int           `json:"openTasks"`
	HoursLogged float64       `json:"hoursLogged"`
	DueTasks    []models.Task `json:"dueTasks"`
}

type ClientDashboard struct {
	Client         models.Client    `json:"client"`
	ActiveProjects int              `json:"activeProjects"`
	Outstanding    float64          `json:"outstanding"`
	Projects       []ProjectSummary `json:"projects"`
}

type Report struct {
	Revenue       float64           `json:"revenue"`
	Outstanding   float64           `json:"outstanding"`
	HoursLogged   float64           `json:"hoursLogged"`
	AverageRating float64           `json:"averageRating"`
	Feedback      []models.Feedback `json:"feedback"`
}

type ClientFeedback struct {
	Given    []models.Feedback `json:"given"`
	Pending  []models.Project  `json:"pending"`
	Projects []models.Project  `json:"projects"`
}

func adminDashboard(u models.User, s state.State) View {
	d := AdminDashboard{
		Clients:        len(s.Clients),
		RecentActivity: newestActivity(s.ActivityLogs, recentActivity),
	}
	for _, p := range s.Projects {
		if p.Status != models.ProjectCompleted {
			d.OpenProjects++
		}
	}
	for _, t := range s.Tasks {
		if t.Status != models.TaskCompleted {
			d.OpenTasks++
		}
	}
	for _, member := range s.Users {
		if member.Role != models.RoleClient {
			d.Team++
		}
	}
	d.Revenue, d.Outstanding = totals(s.Invoices)
	return View{Data: d}
}

func employeeDashboard(u models.User, s state.State) View {
	d := EmployeeDashboard{
		Projects: len(scope.Projects(u, s)),
		DueTasks: []models.Task{},
	}
	for _, t := range scope.Tasks(u, s) {
		if t.Status == models.TaskCompleted {
			continue
		}
		d.OpenTasks++
		if !t.DueDate.IsZero() {
			d.DueTasks = append(d.DueTasks, t)
		}
	}
	sort.SliceStable(d.DueTasks, func(i, j int) bool { return d.DueTasks[i].DueDate.Before(d.DueTasks[j].DueDate) })
	for _, l := range s.TimeLogs {
		if l.EmployeeID == u.ID {
			d.HoursLogged += l.Hours
		}
	}
	return View{Data: d}
}

func clientDashboard(u models.User, s state.State) View {
	client, _ := scope.ClientFor(u, s.Clients)
	d := ClientDashboard{Client: client, Projects: summaries(u, s)}
	for _, p := range d.Projects {
		if p.Project.Status != models.ProjectCompleted {
			d.ActiveProjects++
		}
	}
	_, d.Outstanding = totals(scope.Invoices(u, s))
	return View{Data: d}
}

func projectList(u models.User, s state.State) View {
	return View{Data: summaries(u, s)}
}

func summaries(u models.User, s state.State) []ProjectSummary {
	unread := badges.UnreadByProject(u, s)
	projects := scope.Projects(u, s)
	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		sum := ProjectSummary{Project: p, Unread: unread[p.ID]}
		if c, ok := s.Client(p.ClientID); ok {
			sum.ClientName = c.Name
		}
		for _, t := range s.Tasks {
			if t.ProjectID != p.ID {
				continue
			}
			if t.Status == models.TaskCompleted {
				sum.CompletedTasks++
			} else {
				sum.OpenTasks++
			}
		}
		out = append(out, sum)
	}
	return out
}

func taskList(u models.User, s state.State) View {
	return View{Data: orEmpty(scope.Tasks(u, s))}
}

func clientList(u models.User, s state.State) View {
	out := make([]ClientSummary, 0, len(s.Clients))
	for _, c := range s.Clients {
		sum := ClientSummary{Client: c}
		for _, p := range s.Projects {
			if p.ClientID == c.ID {
				sum.Projects++
			}
		}
		for _, inv := range s.Invoices {
			if inv.ClientID == c.ID && (inv.Status == models.InvoiceSent || inv.Status == models.InvoiceOverdue) {
				sum.Outstanding += inv.Amount
			}
		}
		out = append(out, sum)
	}
	return View{Data: out}
}

func teamList(u models.User, s state.State) View {
	out := []models.PublicUser{}
	for _, member := range s.Users {
		if member.Role != models.RoleClient {
			out = append(out, member.Public())
		}
	}
	return View{Data: out}
}

func invoiceList(u models.User, s state.State) View {
	invoices := append([]models.Invoice(nil), scope.Invoices(u, s)...)
	sort.SliceStable(invoices, func(i, j int) bool { return invoices[i].IssueDate.After(invoices[j].IssueDate) })
	return View{Data: orEmpty(invoices)}
}

func reports(u models.User, s state.State) View {
	r := Report{Feedback: orEmpty(s.Feedback)}
	r.Revenue, r.Outstanding = totals(s.Invoices)
	for _, l := range s.TimeLogs {
		r.HoursLogged += l.Hours
	}
	if len(s.Feedback) > 0 {
		sum := 0
		for _, f := range s.Feedback {
			sum += f.Rating
		}
		r.AverageRating = float64(sum) / float64(len(s.Feedback))
	}
	return View{Data: r}
}

func conversations(u models.User, s state.State) View {
	unread := badges.UnreadByProject(u, s)
	projects := scope.Projects(u, s)
	out := make([]ConversationSummary, 0, len(projects))
	for _, p := range projects {
		c := ConversationSummary{ProjectID: p.ID, ProjectName: p.Name, Unread: unread[p.ID]}
		for i := range s.ChatMessages {
			m := s.ChatMessages[i]
			if m.ProjectID == p.ID && (c.Last == nil || m.Timestamp.After(c.Last.Timestamp)) {
				c.Last = &m
			}
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Last == nil || out[j].Last == nil {
			return out[j].Last == nil && out[i].Last != nil
		}
		return out[i].Last.Timestamp.After(out[j].Last.Timestamp)
	})
	return View{Data: out}
}

func deliverables(u models.User, s state.State) View {
	relevant := scope.ProjectIDs(u, s)
	out := []models.ProjectFile{}
	for _, f := range s.Files {
		if _, ok := relevant[f.ProjectID]; ok {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return View{Data: out}
}

func timeLogs(u models.User, s state.State) View {
	out := []models.TimeLog{}
	for _, l := range s.TimeLogs {
		if u.Role == models.RoleAdmin || l.EmployeeID == u.ID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return View{Data: out}
}

func activity(u models.User, s state.State) View {
	return View{Data: newestActivity(s.ActivityLogs, 0)}
}

func clientFeedback(u models.User, s state.State) View {
	client, _ := scope.ClientFor(u, s.Clients)
	d := ClientFeedback{Given: []models.Feedback{}, Pending: []models.Project{}, Projects: orEmpty(scope.Projects(u, s))}
	rated := make(map[primitive.ObjectID]bool)
	for _, f := range s.Feedback {
		if f.ClientID == client.ID {
			d.Given = append(d.Given, f)
			rated[f.ProjectID] = true
		}
	}
	for _, p := range d.Projects {
		if p.Status == models.ProjectCompleted && !rated[p.ID] {
			d.Pending = append(d.Pending, p)
		}
	}
	return View{Data: d}
}

// totals returns paid revenue and the amount still owed (Sent or Overdue).
func totals(invoices []models.Invoice) (paid, outstanding float64) {
	for _, inv := range invoices {
		switch inv.Status {
		case models.InvoicePaid:
			paid += inv.Amount
		case models.InvoiceSent, models.InvoiceOverdue:
			outstanding += inv.Amount
		}
	}
	return paid, outstanding
}

func newestActivity(logs []models.ActivityLog, limit int) []models.ActivityLog {
	out := append([]models.ActivityLog{}, logs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func orEmpty[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

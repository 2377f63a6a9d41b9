// Package navigation maps a role and a selected tab to the page that renders it.
package navigation

import (
	"errors"

	"github.com/Dias221467/agency-portal/internal/badges"
	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/state"
)

// ErrUnknownView is returned for a (role, view) pair with no page.
var ErrUnknownView = errors.New("unknown view")

const noClientProfile = "No client profile is linked to your account. Contact your account manager."

// Key selects one page.
type Key struct {
	Role models.Role
	View badges.Destination
}

// Page renders one view of the portal.
type Page struct {
	Title string
	Build func(u models.User, s state.State) View

	// Client pages need the client profile matched by e-mail.
	needsClient bool
}

// View is the payload of a rendered page. A page that cannot be rendered for
// the user carries Error and empty Data instead of failing.
type View struct {
	Key   badges.Destination `json:"view"`
	Title string             `json:"title"`
	Data  interface{}        `json:"data"`
	Error string             `json:"error,omitempty"`
}

// MenuItem is one navigation entry with its badge.
type MenuItem struct {
	View  badges.Destination `json:"view"`
	Title string             `json:"title"`
	Badge int                `json:"badge"`
	Dot   bool               `json:"dot"`
}

var menus = map[models.Role][]badges.Destination{
	models.RoleAdmin: {
		badges.Dashboard, badges.Projects, badges.Clients, badges.Team, badges.Billing,
		badges.Reports, badges.Messages, badges.TimeTracking, badges.Activity,
	},
	models.RoleEmployee: {
		badges.Dashboard, badges.MyProjects, badges.MyTasks, badges.TimeTracking,
		badges.Messages, badges.Deliverables,
	},
	models.RoleClient: {
		badges.Dashboard, badges.Projects, badges.Deliverables, badges.ClientBilling,
		badges.Support, badges.Feedback,
	},
}

var pages = map[Key]Page{
	{models.RoleAdmin, badges.Dashboard}:    {Title: "Dashboard", Build: adminDashboard},
	{models.RoleAdmin, badges.Projects}:     {Title: "Projects", Build: projectList},
	{models.RoleAdmin, badges.Clients}:      {Title: "Clients", Build: clientList},
	{models.RoleAdmin, badges.Team}:         {Title: "Team", Build: teamList},
	{models.RoleAdmin, badges.Billing}:      {Title: "Billing", Build: invoiceList},
	{models.RoleAdmin, badges.Reports}:      {Title: "Reports", Build: reports},
	{models.RoleAdmin, badges.Messages}:     {Title: "Messages", Build: conversations},
	{models.RoleAdmin, badges.TimeTracking}: {Title: "Time Tracking", Build: timeLogs},
	{models.RoleAdmin, badges.Activity}:     {Title: "Activity", Build: activity},

	{models.RoleEmployee, badges.Dashboard}:    {Title: "Dashboard", Build: employeeDashboard},
	{models.RoleEmployee, badges.MyProjects}:   {Title: "My Projects", Build: projectList},
	{models.RoleEmployee, badges.MyTasks}:      {Title: "My Tasks", Build: taskList},
	{models.RoleEmployee, badges.TimeTracking}: {Title: "Time Tracking", Build: timeLogs},
	{models.RoleEmployee, badges.Messages}:     {Title: "Messages", Build: conversations},
	{models.RoleEmployee, badges.Deliverables}: {Title: "Deliverables", Build: deliverables},

	{models.RoleClient, badges.Dashboard}:     {Title: "Dashboard", Build: clientDashboard, needsClient: true},
	{models.RoleClient, badges.Projects}:      {Title: "Projects", Build: projectList, needsClient: true},
	{models.RoleClient, badges.Deliverables}:  {Title: "Deliverables", Build: deliverables, needsClient: true},
	{models.RoleClient, badges.ClientBilling}: {Title: "Billing", Build: invoiceList, needsClient: true},
	{models.RoleClient, badges.Support}:       {Title: "Support", Build: conversations, needsClient: true},
	{models.RoleClient, badges.Feedback}:      {Title: "Feedback", Build: clientFeedback, needsClient: true},
}

// Resolve returns the page for role and view.
func Resolve(role models.Role, view badges.Destination) (Page, error) {
	p, ok := pages[Key{Role: role, View: view}]
	if !ok {
		return Page{}, ErrUnknownView
	}
	return p, nil
}

// Render resolves and builds view for u.
func Render(u models.User, s state.State, view badges.Destination) (View, error) {
	p, err := Resolve(u.Role, view)
	if err != nil {
		return View{}, err
	}
	if p.needsClient {
		if _, ok := scope.ClientFor(u, s.Clients); !ok {
			return View{Key: view, Title: p.Title, Data: []struct{}{}, Error: noClientProfile}, nil
		}
	}
	v := p.Build(u, s)
	v.Key = view
	v.Title = p.Title
	return v, nil
}

// Menu returns the role's destinations in order, each with its badge.
func Menu(u models.User, s state.State) []MenuItem {
	dests := menus[u.Role]
	items := make([]MenuItem, 0, len(dests))
	for _, d := range dests {
		count := badges.Count(d, u, s)
		items = append(items, MenuItem{
			View:  d,
			Title: pages[Key{Role: u.Role, View: d}].Title,
			Badge: count,
			Dot:   badges.Dot(count),
		})
	}
	return items
}

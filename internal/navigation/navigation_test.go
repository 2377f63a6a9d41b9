package navigation_test

import (
	"testing"

	"github.com/Dias221467/agency-portal/internal/badges"
	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/navigation"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/Dias221467/agency-portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type world struct {
	admin, emp, cu models.User
	client         models.Client
	project        models.Project
	s              state.State
}

func newWorld() world {
	w := world{
		admin: testutil.Admin("ann"),
		emp:   testutil.Employee("erin"),
		cu:    testutil.ClientUser("acme"),
	}
	w.client = testutil.ClientFor(w.cu)
	w.project = testutil.Project("site", w.client, models.ProjectInProgress, w.emp)
	other := testutil.ClientFor(testutil.ClientUser("globex"))
	w.s = state.State{
		Users:    []models.User{w.admin, w.emp, w.cu},
		Clients:  []models.Client{w.client, other},
		Projects: []models.Project{w.project, testutil.Project("other", other, models.ProjectOnHold)},
		Invoices: []models.Invoice{
			testutil.Invoice(w.client, models.InvoiceSent),
			testutil.Invoice(w.client, models.InvoicePaid),
			testutil.Invoice(other, models.InvoiceOverdue),
		},
		ChatMessages: []models.ChatMessage{testutil.Message(w.project, w.admin, "hello")},
	}
	return w
}

func TestResolveUsesRoleAndView(t *testing.T) {
	p, err := navigation.Resolve(models.RoleAdmin, badges.Billing)
	require.NoError(t, err)
	assert.Equal(t, "Billing", p.Title)

	_, err = navigation.Resolve(models.RoleClient, badges.Billing)
	assert.ErrorIs(t, err, navigation.ErrUnknownView)

	_, err = navigation.Resolve(models.RoleEmployee, badges.Clients)
	assert.ErrorIs(t, err, navigation.ErrUnknownView)
}

func TestEveryMenuEntryResolves(t *testing.T) {
	w := newWorld()
	for _, u := range []models.User{w.admin, w.emp, w.cu} {
		for _, item := range navigation.Menu(u, w.s) {
			_, err := navigation.Resolve(u.Role, item.View)
			assert.NoError(t, err, "%s/%s", u.Role, item.View)
			assert.NotEmpty(t, item.Title)
		}
	}
}

func TestMenuCarriesBadges(t *testing.T) {
	w := newWorld()

	items := navigation.Menu(w.emp, w.s)

	var messages navigation.MenuItem
	for _, item := range items {
		if item.View == badges.Messages {
			messages = item
		}
	}
	assert.Equal(t, 1, messages.Badge)
	assert.True(t, messages.Dot)
	assert.Equal(t, badges.Dashboard, items[0].View)
}

func TestClientSeesOnlyMatchedInvoices(t *testing.T) {
	w := newWorld()

	v, err := navigation.Render(w.cu, w.s, badges.ClientBilling)
	require.NoError(t, err)

	invoices := v.Data.([]models.Invoice)
	assert.Len(t, invoices, 2)
	for _, inv := range invoices {
		assert.Equal(t, w.client.ID, inv.ClientID)
	}
	assert.Empty(t, v.Error)
}

func TestClientWithoutProfileGetsEmptyView(t *testing.T) {
	w := newWorld()
	orphan := testutil.ClientUser("orphan")
	w.s.Users = append(w.s.Users, orphan)

	for _, view := range []badges.Destination{badges.Dashboard, badges.Projects, badges.ClientBilling, badges.Support, badges.Feedback} {
		v, err := navigation.Render(orphan, w.s, view)
		require.NoError(t, err)
		assert.NotEmpty(t, v.Error, view)
		assert.Empty(t, v.Data, view)
	}
}

func TestProjectSummaries(t *testing.T) {
	w := newWorld()
	w.s.Tasks = []models.Task{
		testutil.Task("a", w.project, w.emp, models.TaskToDo),
		testutil.Task("b", w.project, w.emp, models.TaskCompleted),
	}

	v, err := navigation.Render(w.emp, w.s, badges.MyProjects)
	require.NoError(t, err)

	list := v.Data.([]navigation.ProjectSummary)
	require.Len(t, list, 1)
	assert.Equal(t, w.project.ID, list[0].Project.ID)
	assert.Equal(t, 1, list[0].OpenTasks)
	assert.Equal(t, 1, list[0].CompletedTasks)
	assert.Equal(t, 1, list[0].Unread)
	assert.Equal(t, w.client.Name, list[0].ClientName)
}

func TestAdminDashboardTotals(t *testing.T) {
	w := newWorld()

	v, err := navigation.Render(w.admin, w.s, badges.Dashboard)
	require.NoError(t, err)

	d := v.Data.(navigation.AdminDashboard)
	assert.Equal(t, 2, d.OpenProjects)
	assert.Equal(t, 2, d.Clients)
	assert.Equal(t, 2, d.Team)
	assert.Equal(t, 500.0, d.Revenue)
	assert.Equal(t, 1000.0, d.Outstanding)
}

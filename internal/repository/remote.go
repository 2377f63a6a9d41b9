package repository

import (
	"context"
	"fmt"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// Remote groups every remote table plus the chat insert subscription.
type Remote struct {
	Users         Table[models.User]
	Clients       Table[models.Client]
	Projects      Table[models.Project]
	Tasks         Table[models.Task]
	TimeLogs      Table[models.TimeLog]
	ChatMessages  Table[models.ChatMessage]
	Invoices      Table[models.Invoice]
	ProjectFiles  Table[models.ProjectFile]
	Feedback      Table[models.Feedback]
	ActivityLogs  Table[models.ActivityLog]
	Notifications Table[models.PanelNotification]

	ChatInserts Watcher
}

// NewMongoRemote binds every table to a collection of db.
func NewMongoRemote(db *mongo.Database) *Remote {
	chat := NewMongoTable[models.ChatMessage](db, models.TableChatMessages)
	return &Remote{
		Users:         NewMongoTable[models.User](db, models.TableUsers),
		Clients:       NewMongoTable[models.Client](db, models.TableClients),
		Projects:      NewMongoTable[models.Project](db, models.TableProjects),
		Tasks:         NewMongoTable[models.Task](db, models.TableTasks),
		TimeLogs:      NewMongoTable[models.TimeLog](db, models.TableTimeLogs),
		ChatMessages:  chat,
		Invoices:      NewMongoTable[models.Invoice](db, models.TableInvoices),
		ProjectFiles:  NewMongoTable[models.ProjectFile](db, models.TableProjectFiles),
		Feedback:      NewMongoTable[models.Feedback](db, models.TableFeedback),
		ActivityLogs:  NewMongoTable[models.ActivityLog](db, models.TableActivityLogs),
		Notifications: NewMongoTable[models.PanelNotification](db, models.TableNotifications),
		ChatInserts:   chat,
	}
}

// NewMemoryRemote builds an in-process remote, used for local runs and tests.
func NewMemoryRemote() *Remote {
	chat := NewMemoryTable[models.ChatMessage](models.TableChatMessages)
	return &Remote{
		Users:         NewMemoryTable[models.User](models.TableUsers),
		Clients:       NewMemoryTable[models.Client](models.TableClients),
		Projects:      NewMemoryTable[models.Project](models.TableProjects),
		Tasks:         NewMemoryTable[models.Task](models.TableTasks),
		TimeLogs:      NewMemoryTable[models.TimeLog](models.TableTimeLogs),
		ChatMessages:  chat,
		Invoices:      NewMemoryTable[models.Invoice](models.TableInvoices),
		ProjectFiles:  NewMemoryTable[models.ProjectFile](models.TableProjectFiles),
		Feedback:      NewMemoryTable[models.Feedback](models.TableFeedback),
		ActivityLogs:  NewMemoryTable[models.ActivityLog](models.TableActivityLogs),
		Notifications: NewMemoryTable[models.PanelNotification](models.TableNotifications),
		ChatInserts:   chat,
	}
}

// Snapshot bulk-fetches every table concurrently. Any failing table fails the whole load.
func (r *Remote) Snapshot(ctx context.Context) (state.State, error) {
	var s state.State
	g, ctx := errgroup.WithContext(ctx)

	g.Go(selectInto(ctx, models.TableUsers, r.Users, &s.Users))
	g.Go(selectInto(ctx, models.TableClients, r.Clients, &s.Clients))
	g.Go(selectInto(ctx, models.TableProjects, r.Projects, &s.Projects))
	g.Go(selectInto(ctx, models.TableTasks, r.Tasks, &s.Tasks))
	g.Go(selectInto(ctx, models.TableTimeLogs, r.TimeLogs, &s.TimeLogs))
	g.Go(selectInto(ctx, models.TableChatMessages, r.ChatMessages, &s.ChatMessages))
	g.Go(selectInto(ctx, models.TableInvoices, r.Invoices, &s.Invoices))
	g.Go(selectInto(ctx, models.TableProjectFiles, r.ProjectFiles, &s.Files))
	g.Go(selectInto(ctx, models.TableFeedback, r.Feedback, &s.Feedback))
	g.Go(selectInto(ctx, models.TableActivityLogs, r.ActivityLogs, &s.ActivityLogs))
	g.Go(selectInto(ctx, models.TableNotifications, r.Notifications, &s.Notifications))

	if err := g.Wait(); err != nil {
		return state.State{}, err
	}

	logrus.WithFields(logrus.Fields{
		"users":    len(s.Users),
		"projects": len(s.Projects),
		"messages": len(s.ChatMessages),
	}).Info("Remote snapshot loaded")
	return s, nil
}

func selectInto[T any](ctx context.Context, name string, table Table[T], dst *[]T) func() error {
	return func() error {
		rows, err := table.Select(ctx)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
		*dst = rows
		return nil
	}
}

// TableFor returns the table of r that stores rows of type T, with its name.
func TableFor[T models.Row](r *Remote) (Table[T], string) {
	var zero T
	name := models.TableName(zero)

	var table interface{}
	switch name {
	case models.TableUsers:
		table = r.Users
	case models.TableClients:
		table = r.Clients
	case models.TableProjects:
		table = r.Projects
	case models.TableTasks:
		table = r.Tasks
	case models.TableTimeLogs:
		table = r.TimeLogs
	case models.TableChatMessages:
		table = r.ChatMessages
	case models.TableInvoices:
		table = r.Invoices
	case models.TableProjectFiles:
		table = r.ProjectFiles
	case models.TableFeedback:
		table = r.Feedback
	case models.TableActivityLogs:
		table = r.ActivityLogs
	case models.TableNotifications:
		table = r.Notifications
	}
	t, ok := table.(Table[T])
	if !ok {
		panic(fmt.Sprintf("repository: no table for %T", zero))
	}
	return t, name
}

package testutil

import (
	"context"
	"testing"

	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/state"
)

// NewRemote returns an in-memory remote pre-filled with seed.
func NewRemote(t *testing.T, seed state.State) *repository.Remote {
	t.Helper()

	r := repository.NewMemoryRemote()
	ctx := context.Background()
	for i := range seed.Users {
		mustInsert(t, ctx, r.Users, &seed.Users[i])
	}
	for i := range seed.Clients {
		mustInsert(t, ctx, r.Clients, &seed.Clients[i])
	}
	for i := range seed.Projects {
		mustInsert(t, ctx, r.Projects, &seed.Projects[i])
	}
	for i := range seed.Tasks {
		mustInsert(t, ctx, r.Tasks, &seed.Tasks[i])
	}
	for i := range seed.TimeLogs {
		mustInsert(t, ctx, r.TimeLogs, &seed.TimeLogs[i])
	}
	for i := range seed.ChatMessages {
		mustInsert(t, ctx, r.ChatMessages, &seed.ChatMessages[i])
	}
	for i := range seed.Invoices {
		mustInsert(t, ctx, r.Invoices, &seed.Invoices[i])
	}
	for i := range seed.Files {
		mustInsert(t, ctx, r.ProjectFiles, &seed.Files[i])
	}
	for i := range seed.Feedback {
		mustInsert(t, ctx, r.Feedback, &seed.Feedback[i])
	}
	for i := range seed.ActivityLogs {
		mustInsert(t, ctx, r.ActivityLogs, &seed.ActivityLogs[i])
	}
	for i := range seed.Notifications {
		mustInsert(t, ctx, r.Notifications, &seed.Notifications[i])
	}
	return r
}

func mustInsert[T any](t *testing.T, ctx context.Context, table repository.Table[T], row *T) {
	t.Helper()
	if _, err := table.Insert(ctx, row); err != nil {
		t.Fatalf("seeding remote: %v", err)
	}
}

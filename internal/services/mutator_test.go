package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dias221467/agency-portal/internal/badges"
	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/notify"
	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/Dias221467/agency-portal/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordedPublish struct {
	userID primitive.ObjectID
	event  string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedPublish
}

func (p *fakePublisher) Publish(userID primitive.ObjectID, event string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedPublish{userID: userID, event: event})
}

func (p *fakePublisher) recipients() []primitive.ObjectID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []primitive.ObjectID
	for _, e := range p.events {
		ids = append(ids, e.userID)
	}
	return ids
}

type env struct {
	admin, emp, cu models.User
	client         models.Client
	project        models.Project

	remote    *repository.Remote
	store     *state.Store
	mutator   *Mutator
	publisher *fakePublisher
}

func newEnv(t *testing.T, extra ...models.User) *env {
	t.Helper()
	e := &env{
		admin: testutil.Admin("ann"),
		emp:   testutil.Employee("erin"),
		cu:    testutil.ClientUser("acme"),
	}
	e.client = testutil.ClientFor(e.cu)
	e.project = testutil.Project("site", e.client, models.ProjectInProgress, e.emp)

	seed := state.State{
		Users:    append([]models.User{e.admin, e.emp, e.cu}, extra...),
		Clients:  []models.Client{e.client},
		Projects: []models.Project{e.project},
	}
	e.remote = testutil.NewRemote(t, seed)
	e.start(t)
	return e
}

// start builds the store and mutator from the remote's current contents.
func (e *env) start(t *testing.T) {
	t.Helper()
	snap, err := e.remote.Snapshot(context.Background())
	require.NoError(t, err)
	e.store = state.NewStore(snap)
	e.publisher = &fakePublisher{}
	e.mutator = NewMutator(e.remote, e.store, notify.NewRouter(), e.publisher)
}

func TestDeleteLastAdminIsRejected(t *testing.T) {
	e := newEnv(t)
	users := testutil.Record(e.remote.Users)
	e.remote.Users = users
	before := e.store.Snapshot()

	res, err := e.mutator.Submit(context.Background(), e.admin, DeleteUser(e.admin.ID))
	e.mutator.Flush()

	require.ErrorIs(t, err, ErrLastAdmin)
	assert.Equal(t, 0, users.Calls(), "no remote call")
	assert.Empty(t, cmp.Diff(before, e.store.Snapshot()), "no state change")
	assert.Equal(t, notify.KindError, res.Toast.Kind)
}

func TestDeleteAdminSucceedsWhenAnotherAdminExists(t *testing.T) {
	second := testutil.Admin("bob")
	e := newEnv(t, second)
	users := testutil.Record(e.remote.Users)
	e.remote.Users = users

	res, err := e.mutator.Submit(context.Background(), second, DeleteUser(e.admin.ID))
	e.mutator.Flush()

	require.NoError(t, err)
	assert.Equal(t, 1, users.Calls())
	assert.Equal(t, notify.KindSuccess, res.Toast.Kind)
	_, ok := e.store.Snapshot().User(e.admin.ID)
	assert.False(t, ok)
	assert.Len(t, e.store.Snapshot().Admins(), 1)
}

func TestDemotingLastAdminIsRejected(t *testing.T) {
	e := newEnv(t)

	_, err := e.mutator.Submit(context.Background(), e.admin, &Update[models.User]{
		ID:     e.admin.ID,
		Fields: bson.M{"role": models.RoleEmployee},
	})

	assert.ErrorIs(t, err, ErrLastAdmin)
}

func TestCreateRoundTrip(t *testing.T) {
	e := newEnv(t)
	input := models.Project{
		Name:                "portal",
		Description:         "client portal",
		ClientID:            e.client.ID,
		Status:              models.ProjectNotStarted,
		AssignedEmployeeIDs: []primitive.ObjectID{e.emp.ID},
		Budget:              2500,
		Deadline:            testutil.Now.Add(72 * time.Hour),
		CreatedAt:           testutil.Now,
	}

	res, err := e.mutator.Submit(context.Background(), e.admin, &Create[models.Project]{Row: input})
	e.mutator.Flush()
	require.NoError(t, err)
	require.Len(t, res.Deltas, 1)

	stored := res.Deltas[0].Row.(models.Project)
	require.False(t, stored.ID.IsZero())

	got, ok := e.store.Snapshot().Project(stored.ID)
	require.True(t, ok)
	want := input
	want.ID = stored.ID
	assert.Equal(t, want, got)
	assert.Equal(t, "Project created successfully", res.Toast.Message)
}

func TestCreateFillsDefaults(t *testing.T) {
	e := newEnv(t)
	clock = func() time.Time { return testutil.Now }
	defer func() { clock = time.Now }()

	res, err := e.mutator.Submit(context.Background(), e.admin, &Create[models.Invoice]{Row: models.Invoice{
		ClientID: e.client.ID,
		Amount:   900,
	}})
	e.mutator.Flush()
	require.NoError(t, err)

	inv := res.Deltas[0].Row.(models.Invoice)
	assert.Equal(t, models.InvoiceDraft, inv.Status)
	assert.Equal(t, testutil.Now, inv.IssueDate)
	assert.Equal(t, "INV-2026-0001", inv.Number)
}

func TestRemoteFailureLeavesStateUntouched(t *testing.T) {
	e := newEnv(t)
	projects := testutil.Record(e.remote.Projects)
	projects.Err = errors.New("connection reset")
	e.remote.Projects = projects
	before := e.store.Snapshot()

	res, err := e.mutator.Submit(context.Background(), e.admin, &Create[models.Project]{Row: models.Project{
		Name:     "doomed",
		ClientID: e.client.ID,
	}})
	e.mutator.Flush()

	require.Error(t, err)
	assert.Equal(t, notify.KindError, res.Toast.Kind)
	assert.Equal(t, "Failed to create project", res.Toast.Message)
	assert.Empty(t, cmp.Diff(before, e.store.Snapshot()))
}

func TestValidationErrorBecomesToast(t *testing.T) {
	e := newEnv(t)

	res, err := e.mutator.Submit(context.Background(), e.admin, &Create[models.Project]{Row: models.Project{
		Name:     "orphan",
		ClientID: primitive.NewObjectID(),
	}})

	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, res.Toast.Message, "Invalid project: client")
}

func TestUpdateMergesAndNotifies(t *testing.T) {
	e := newEnv(t)

	_, err := e.mutator.Submit(context.Background(), e.admin, &Update[models.Project]{
		ID:     e.project.ID,
		Fields: bson.M{"status": models.ProjectCompleted},
	})
	e.mutator.Flush()
	require.NoError(t, err)

	s := e.store.Snapshot()
	p, _ := s.Project(e.project.ID)
	assert.Equal(t, models.ProjectCompleted, p.Status)

	var owners []primitive.ObjectID
	for _, n := range s.Notifications {
		assert.Equal(t, models.NotifyProjectStatus, n.Type)
		owners = append(owners, n.UserID)
	}
	assert.ElementsMatch(t, []primitive.ObjectID{e.emp.ID, e.cu.ID}, owners)
	assert.ElementsMatch(t, owners, e.publisher.recipients())

	require.Len(t, s.ActivityLogs, 1)
	assert.Equal(t, "project_updated", s.ActivityLogs[0].Action)
	assert.Equal(t, e.project.ID, s.ActivityLogs[0].EntityID)
}

func TestUpdateUnknownRow(t *testing.T) {
	e := newEnv(t)

	_, err := e.mutator.Submit(context.Background(), e.admin, &Update[models.Project]{
		ID:     primitive.NewObjectID(),
		Fields: bson.M{"name": "x"},
	})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmployeeMayOnlyMoveOwnTaskStatus(t *testing.T) {
	e := newEnv(t)
	task := testutil.Task("design", e.project, e.emp, models.TaskToDo)
	_, err := e.remote.Tasks.Insert(context.Background(), &task)
	require.NoError(t, err)
	e.start(t)

	_, err = e.mutator.Submit(context.Background(), e.emp, &Update[models.Task]{
		ID:     task.ID,
		Fields: bson.M{"status": models.TaskInProgress},
	})
	require.NoError(t, err)

	_, err = e.mutator.Submit(context.Background(), e.emp, &Update[models.Task]{
		ID:     task.ID,
		Fields: bson.M{"title": "renamed"},
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.mutator.Submit(context.Background(), e.emp, &Update[models.Task]{
		ID:     task.ID,
		Fields: bson.M{"status": "Blocked"},
	})
	assert.ErrorIs(t, err, ErrInvalid)
	e.mutator.Flush()

	got, _ := e.store.Snapshot().Task(task.ID)
	assert.Equal(t, models.TaskInProgress, got.Status)
}

func TestClientCannotCreateProjects(t *testing.T) {
	e := newEnv(t)

	_, err := e.mutator.Submit(context.Background(), e.cu, &Create[models.Project]{Row: models.Project{
		Name:     "mine",
		ClientID: e.client.ID,
	}})

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSendMessageIsNotMergedLocally(t *testing.T) {
	e := newEnv(t)

	res, err := e.mutator.Submit(context.Background(), e.emp, &SendMessage{ProjectID: e.project.ID, Text: "draft ready"})
	e.mutator.Flush()
	require.NoError(t, err)
	require.Len(t, res.Deltas, 1)

	assert.Empty(t, e.store.Snapshot().ChatMessages, "only the subscription appends")

	remote, err := e.remote.ChatMessages.Select(context.Background())
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, e.emp.ID, remote[0].SenderID)
	assert.Empty(t, remote[0].ReadBy)

	var owners []primitive.ObjectID
	for _, n := range e.store.Snapshot().Notifications {
		owners = append(owners, n.UserID)
	}
	assert.ElementsMatch(t, []primitive.ObjectID{e.admin.ID, e.cu.ID}, owners)
	assert.Empty(t, e.store.Snapshot().ActivityLogs)
}

func TestSendMessageToForeignProject(t *testing.T) {
	e := newEnv(t)
	outsider := testutil.Employee("oscar")

	_, err := e.mutator.Submit(context.Background(), outsider, &SendMessage{ProjectID: e.project.ID, Text: "hi"})

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMarkConversationRead(t *testing.T) {
	e := newEnv(t)
	for _, text := range []string{"one", "two"} {
		m := testutil.Message(e.project, e.admin, text)
		_, err := e.remote.ChatMessages.Insert(context.Background(), &m)
		require.NoError(t, err)
	}
	e.start(t)
	require.Equal(t, 1, badges.Count(badges.Messages, e.emp, e.store.Snapshot()))

	res, err := e.mutator.Submit(context.Background(), e.emp, &MarkConversationRead{ProjectID: e.project.ID, Reader: e.emp.ID})
	e.mutator.Flush()
	require.NoError(t, err)
	assert.Len(t, res.Deltas, 2)

	assert.Equal(t, 0, badges.Count(badges.Messages, e.emp, e.store.Snapshot()))
	remote, err := e.remote.ChatMessages.Select(context.Background())
	require.NoError(t, err)
	for _, m := range remote {
		assert.Contains(t, m.ReadBy, e.emp.ID)
	}
}

func TestMarkAllNotificationsReadIsIdempotent(t *testing.T) {
	e := newEnv(t)
	for _, kind := range []models.NotificationType{models.NotifyNewTask, models.NotifyProjectStatus} {
		n := testutil.Notification(e.emp, kind, false)
		_, err := e.remote.Notifications.Insert(context.Background(), &n)
		require.NoError(t, err)
	}
	e.start(t)
	notifications := testutil.Record(e.remote.Notifications)
	e.remote.Notifications = notifications

	_, err := e.mutator.Submit(context.Background(), e.emp, &MarkAllNotificationsRead{Owner: e.emp.ID})
	require.NoError(t, err)
	calls := notifications.Calls()

	_, err = e.mutator.Submit(context.Background(), e.emp, &MarkAllNotificationsRead{Owner: e.emp.ID})
	require.NoError(t, err)
	e.mutator.Flush()

	assert.Equal(t, calls, notifications.Calls(), "nothing left to write")
	for _, n := range e.store.Snapshot().Notifications {
		assert.True(t, n.Read)
	}
}

func TestMarkNotificationReadOwnerOnly(t *testing.T) {
	e := newEnv(t)
	n := testutil.Notification(e.emp, models.NotifyNewTask, false)
	_, err := e.remote.Notifications.Insert(context.Background(), &n)
	require.NoError(t, err)
	e.start(t)

	_, err = e.mutator.Submit(context.Background(), e.admin, &MarkNotificationRead{ID: n.ID, Owner: e.admin.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.mutator.Submit(context.Background(), e.emp, &MarkNotificationRead{ID: n.ID, Owner: e.emp.ID})
	require.NoError(t, err)
	got, _ := e.store.Snapshot().Notification(n.ID)
	assert.True(t, got.Read)
}

func TestCancelledContextAbortsWrite(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	before := e.store.Snapshot()

	_, err := e.mutator.Submit(ctx, e.admin, &Update[models.Project]{
		ID:     e.project.ID,
		Fields: bson.M{"name": "late"},
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, cmp.Diff(before, e.store.Snapshot()))
}

func TestKeyedMutexSerialisesSameKey(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("projects:a")

	acquired := make(chan struct{})
	go func() {
		release := k.Lock("projects:a")
		close(acquired)
		release()
	}()

	other := k.Lock("projects:b")
	other()

	select {
	case <-acquired:
		t.Fatal("second lock on the same key acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock never released")
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendEmail(to, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+"|"+subject)
	return nil
}

func TestInvoiceSentMailer(t *testing.T) {
	e := newEnv(t)
	inv := testutil.Invoice(e.client, models.InvoiceDraft)
	_, err := e.remote.Invoices.Insert(context.Background(), &inv)
	require.NoError(t, err)
	e.start(t)
	sender := &fakeSender{}
	e.mutator.OnCommit(InvoiceSentMailer(sender))

	_, err = e.mutator.Submit(context.Background(), e.admin, &Update[models.Invoice]{
		ID:     inv.ID,
		Fields: bson.M{"amount": 650.0},
	})
	require.NoError(t, err)
	_, err = e.mutator.Submit(context.Background(), e.admin, &Update[models.Invoice]{
		ID:     inv.ID,
		Fields: bson.M{"status": models.InvoiceSent},
	})
	require.NoError(t, err)
	e.mutator.Flush()

	assert.Equal(t, []string{e.client.ContactEmail + "|Invoice " + inv.Number}, sender.sent)
}

func waitEntered(t *testing.T, entered <-chan struct{}) {
	t.Helper()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("write never reached the remote")
	}
}

func TestConcurrentMarkReadKeepsEveryReader(t *testing.T) {
	e := newEnv(t)
	m := testutil.Message(e.project, e.cu, "first draft")
	_, err := e.remote.ChatMessages.Insert(context.Background(), &m)
	require.NoError(t, err)
	e.start(t)

	release := make(chan struct{})
	messages := testutil.Record(e.remote.ChatMessages)
	gate, entered := testutil.Hold(release)
	messages.Gate = gate
	e.remote.ChatMessages = messages

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, reader := range []models.User{e.admin, e.emp} {
		wg.Add(1)
		go func(i int, reader models.User) {
			defer wg.Done()
			_, errs[i] = e.mutator.Submit(context.Background(), reader,
				&MarkConversationRead{ProjectID: e.project.ID, Reader: reader.ID})
		}(i, reader)
	}
	waitEntered(t, entered)
	waitEntered(t, entered)
	close(release)
	wg.Wait()
	e.mutator.Flush()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	local := e.store.Snapshot().ChatMessages
	require.Len(t, local, 1)
	assert.ElementsMatch(t, []primitive.ObjectID{e.admin.ID, e.emp.ID}, local[0].ReadBy)
	assert.False(t, local[0].UnreadBy(e.admin.ID))
	assert.False(t, local[0].UnreadBy(e.emp.ID))
}

func TestAdminsDeletingEachOtherKeepOneAdmin(t *testing.T) {
	bob := testutil.Admin("bob")
	e := newEnv(t, bob)

	release := make(chan struct{})
	users := testutil.Record(e.remote.Users)
	gate, entered := testutil.Hold(release)
	users.Gate = gate
	e.remote.Users = users

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pair := range [][2]models.User{{e.admin, bob}, {bob, e.admin}} {
		wg.Add(1)
		go func(i int, actor, target models.User) {
			defer wg.Done()
			_, errs[i] = e.mutator.Submit(context.Background(), actor, DeleteUser(target.ID))
		}(i, pair[0], pair[1])
	}
	waitEntered(t, entered)
	// Leave the other delete time to reach the remote if nothing holds it back.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	e.mutator.Flush()

	rejected := 0
	for _, err := range errs {
		if errors.Is(err, ErrLastAdmin) {
			rejected++
			continue
		}
		require.NoError(t, err)
	}
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, users.Calls(), "the rejected delete never reaches the remote")
	assert.Len(t, e.store.Snapshot().Admins(), 1)
}

func TestDemotionWaitsForPendingAdminDelete(t *testing.T) {
	bob := testutil.Admin("bob")
	e := newEnv(t, bob)

	release := make(chan struct{})
	users := testutil.Record(e.remote.Users)
	gate, entered := testutil.Hold(release)
	users.Gate = gate
	e.remote.Users = users

	var wg sync.WaitGroup
	var deleteErr, demoteErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, deleteErr = e.mutator.Submit(context.Background(), e.admin, DeleteUser(bob.ID))
	}()
	waitEntered(t, entered)
	go func() {
		defer wg.Done()
		_, demoteErr = e.mutator.Submit(context.Background(), e.admin, &Update[models.User]{
			ID:     e.admin.ID,
			Fields: bson.M{"role": models.RoleEmployee},
		})
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	e.mutator.Flush()

	require.NoError(t, deleteErr)
	assert.ErrorIs(t, demoteErr, ErrLastAdmin)
	assert.Len(t, e.store.Snapshot().Admins(), 1)
}

// selectHook calls after once the wrapped table has been read.
type selectHook[T any] struct {
	repository.Table[T]
	after func()
}

func (h *selectHook[T]) Select(ctx context.Context) ([]T, error) {
	rows, err := h.Table.Select(ctx)
	h.after()
	return rows, err
}

func TestReloadKeepsWritesMergedDuringFetch(t *testing.T) {
	e := newEnv(t)

	var created models.Project
	e.remote.Projects = &selectHook[models.Project]{
		Table: e.remote.Projects,
		after: func() {
			res, err := e.mutator.Submit(context.Background(), e.admin, &Create[models.Project]{
				Row: models.Project{Name: "landing", ClientID: e.client.ID},
			})
			if assert.NoError(t, err) {
				created = res.Deltas[0].Row.(models.Project)
			}
		},
	}

	require.NoError(t, NewSyncService(e.remote, e.store).Reload(context.Background()))
	e.mutator.Flush()

	_, ok := e.store.Snapshot().Project(created.ID)
	assert.True(t, ok, "project created during the reload survives it")
	assert.Len(t, e.store.Snapshot().Projects, 2)
}

func TestCreateDropsCallerChosenID(t *testing.T) {
	e := newEnv(t)

	_, err := e.mutator.Submit(context.Background(), e.admin, &Create[models.Project]{
		Row: models.Project{ID: e.project.ID, Name: "copy", ClientID: e.client.ID},
	})
	e.mutator.Flush()

	require.NoError(t, err)
	assert.Len(t, e.store.Snapshot().Projects, 2)
}

func TestNextInvoiceNumberFollowsHighestSequence(t *testing.T) {
	issued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := state.State{Invoices: []models.Invoice{
		{Number: "INV-2026-0001"},
		{Number: "INV-2026-0003"},
		{Number: "INV-2025-0009"},
		{Number: "manual"},
	}}

	assert.Equal(t, "INV-2026-0004", nextInvoiceNumber(s, issued))
	assert.Equal(t, "INV-2027-0001", nextInvoiceNumber(s, issued.AddDate(1, 0, 0)))
}

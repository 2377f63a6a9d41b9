package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dias221467/agency-portal/internal/config"
	"github.com/Dias221467/agency-portal/internal/handlers"
	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/notify"
	"github.com/Dias221467/agency-portal/internal/realtime"
	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/services"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/Dias221467/agency-portal/internal/testutil"
	jwtutil "github.com/Dias221467/agency-portal/pkg/jwt"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type server struct {
	admin, emp, cu models.User
	client         models.Client
	project        models.Project

	cfg     *config.Config
	remote  *repository.Remote
	store   *state.Store
	mutator *services.Mutator
	router  *mux.Router
}

type response struct {
	Data  json.RawMessage `json:"data"`
	Toast *notify.Toast   `json:"toast"`
}

func newServer(t *testing.T, extra ...models.User) *server {
	t.Helper()
	s := &server{
		admin: testutil.Admin("ann"),
		emp:   testutil.Employee("erin"),
		cu:    testutil.ClientUser("acme"),
	}
	s.client = testutil.ClientFor(s.cu)
	s.project = testutil.Project("site", s.client, models.ProjectInProgress, s.emp)
	seed := state.State{
		Users:    append([]models.User{s.admin, s.emp, s.cu}, extra...),
		Clients:  []models.Client{s.client},
		Projects: []models.Project{s.project},
	}

	s.cfg = &config.Config{
		JWTSecret:      "test-secret",
		TokenExpiry:    time.Hour,
		AdminPassword:  "shared-admin",
		UploadDir:      t.TempDir(),
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	s.remote = testutil.NewRemote(t, seed)
	s.store = state.NewStore(seed)
	hub := realtime.NewHub(s.store)
	s.mutator = services.NewMutator(s.remote, s.store, notify.NewRouter(), hub)
	t.Cleanup(s.mutator.Flush)

	s.router = handlers.NewRouter(handlers.Deps{
		Config:        s.cfg,
		Store:         s.store,
		Mutator:       s.mutator,
		Users:         services.NewUserService(s.store, s.mutator, s.cfg),
		Chat:          services.NewChatService(s.store, s.mutator),
		Notifications: services.NewNotificationService(s.store, s.mutator),
		Activity:      services.NewActivityService(s.remote, s.store),
		Hub:           hub,
	})
	return s
}

func (s *server) do(t *testing.T, as *models.User, method, path string, body interface{}) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *as))
	}
	return s.serve(t, req)
}

func (s *server) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, response) {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (s *server) token(t *testing.T, u models.User) string {
	tok, err := jwtutil.GenerateToken(u.ID.Hex(), u.Email, string(u.Role), s.cfg.JWTSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestLoginThenMe(t *testing.T) {
	s := newServer(t)

	rec, resp := s.do(t, nil, http.MethodPost, "/auth/login", map[string]string{
		"email":    s.admin.Email,
		"password": "shared-admin",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string            `json:"token"`
		User  models.PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &login))
	assert.Equal(t, s.admin.ID, login.User.ID)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec, _ = s.serve(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	s := newServer(t)

	rec, resp := s.do(t, nil, http.MethodPost, "/auth/login", map[string]string{
		"email":    s.admin.Email,
		"password": "guess",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Toast)
	assert.Equal(t, notify.KindError, resp.Toast.Kind)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newServer(t)

	rec, _ := s.do(t, nil, http.MethodGet, "/navigation", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeletingLastAdminIsConflict(t *testing.T) {
	s := newServer(t)

	rec, resp := s.do(t, &s.admin, http.MethodDelete, "/users/"+s.admin.ID.Hex(), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Toast)
	assert.Equal(t, notify.KindError, resp.Toast.Kind)
	assert.Equal(t, "Cannot remove the last admin account", resp.Toast.Message)
	assert.Len(t, s.store.Snapshot().Users, 3)
}

func TestEmployeeCannotDeleteUsers(t *testing.T) {
	s := newServer(t)

	rec, _ := s.do(t, &s.emp, http.MethodDelete, "/users/"+s.cu.ID.Hex(), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateProject(t *testing.T) {
	s := newServer(t)

	rec, resp := s.do(t, &s.admin, http.MethodPost, "/projects", map[string]interface{}{
		"name":     "Rebrand",
		"clientId": s.client.ID.Hex(),
		"budget":   2500,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Project created successfully", resp.Toast.Message)
	var created models.Project
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, models.ProjectNotStarted, created.Status)

	got, ok := s.store.Snapshot().Project(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Rebrand", got.Name)

	// The employee is not assigned, so the new project stays out of their list.
	rec, resp = s.do(t, &s.emp, http.MethodGet, "/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var visible []models.Project
	require.NoError(t, json.Unmarshal(resp.Data, &visible))
	assert.Len(t, visible, 1)
}

func TestRemoteFailureIsBadGateway(t *testing.T) {
	s := newServer(t)
	projects := testutil.Record(s.remote.Projects)
	projects.Err = errors.New("connection reset")
	s.remote.Projects = projects

	rec, resp := s.do(t, &s.admin, http.MethodPost, "/projects", map[string]interface{}{
		"name":     "Rebrand",
		"clientId": s.client.ID.Hex(),
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Failed to create project", resp.Toast.Message)
	assert.Len(t, s.store.Snapshot().Projects, 1)
}

func TestPatchRejectsUnknownField(t *testing.T) {
	s := newServer(t)

	rec, _ := s.do(t, &s.admin, http.MethodPatch, "/projects/"+s.project.ID.Hex(), map[string]interface{}{
		"codename": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp := s.do(t, &s.admin, http.MethodPatch, "/projects/"+s.project.ID.Hex(), map[string]interface{}{
		"status": "Completed",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Project
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, models.ProjectCompleted, updated.Status)
}

func TestViews(t *testing.T) {
	orphan := testutil.ClientUser("orphan")
	s := newServer(t, orphan)

	rec, _ := s.do(t, &s.emp, http.MethodGet, "/views/billing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp := s.do(t, &orphan, http.MethodGet, "/views/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.NotEmpty(t, view.Error)
}

func TestBadgesFollowMenu(t *testing.T) {
	s := newServer(t)

	rec, resp := s.do(t, &s.admin, http.MethodGet, "/badges", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var counts map[string]int
	require.NoError(t, json.Unmarshal(resp.Data, &counts))
	assert.Equal(t, 1, counts["projects"])
	assert.Contains(t, counts, "billing")
	assert.NotContains(t, counts, "my-tasks")
}

func TestUploadFile(t *testing.T) {
	s := newServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "mockup.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/projects/"+s.project.ID.Hex()+"/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(t, s.emp))
	rec, resp := s.serve(t, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var file models.ProjectFile
	require.NoError(t, json.Unmarshal(resp.Data, &file))
	assert.Equal(t, "mockup.png", file.Name)
	assert.Equal(t, s.emp.ID, file.UploaderID)
	assert.EqualValues(t, len("png bytes"), file.Size)

	stored, err := os.ReadFile(filepath.Join(s.cfg.UploadDir, filepath.Base(file.URL)))
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(stored))
}

func TestDownloadRequiresProjectAccess(t *testing.T) {
	outsider := testutil.ClientUser("globex")
	s := newServer(t, outsider)

	name := "4b1d.png"
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.UploadDir, name), []byte("deliverable"), 0o644))
	file := models.ProjectFile{
		ID:         primitive.NewObjectID(),
		ProjectID:  s.project.ID,
		Name:       "final.png",
		URL:        "/uploads/" + name,
		UploaderID: s.emp.ID,
	}
	s.store.Dispatch(state.Inserted(models.TableProjectFiles, file))

	rec, _ := s.do(t, nil, http.MethodGet, file.URL, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, &outsider, http.MethodGet, file.URL, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, &s.cu, http.MethodGet, file.URL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deliverable", rec.Body.String())

	rec, _ = s.do(t, &s.admin, http.MethodGet, "/uploads/missing.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateIgnoresCallerID(t *testing.T) {
	s := newServer(t)
	chosen := primitive.NewObjectID()

	rec, resp := s.do(t, &s.admin, http.MethodPost, "/clients", map[string]interface{}{
		"id":           chosen.Hex(),
		"name":         "Globex",
		"contactEmail": "Ops@Globex.com",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Client
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.NotEqual(t, chosen, created.ID)
	assert.False(t, created.ID.IsZero())
	assert.Equal(t, "ops@globex.com", created.ContactEmail)
}

func TestSendMessageWaitsForEcho(t *testing.T) {
	s := newServer(t)

	rec, resp := s.do(t, &s.emp, http.MethodPost, "/projects/"+s.project.ID.Hex()+"/messages", map[string]string{
		"text": "draft is ready",
	})

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, notify.KindSuccess, resp.Toast.Kind)
	assert.Empty(t, s.store.Snapshot().ChatMessages)

	stored, err := s.remote.ChatMessages.Select(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/services"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/Dias221467/agency-portal/internal/testutil"
	jwtutil "github.com/Dias221467/agency-portal/pkg/jwt"
	"github.com/Dias221467/agency-portal/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func token(t *testing.T, u models.User) string {
	tok, err := jwtutil.GenerateToken(u.ID.Hex(), u.Email, string(u.Role), secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func echoClaims(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(claims.UserID))
}

func TestAuthMiddleware(t *testing.T) {
	u := testutil.Employee("erin")
	h := middleware.AuthMiddleware(secret)(http.HandlerFunc(echoClaims))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		target string
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token(t, u)) }, "/", http.StatusOK},
		{"query token", func(r *http.Request) {}, "/ws?token=" + token(t, u), http.StatusOK},
		{"missing", func(r *http.Request) {}, "/", http.StatusUnauthorized},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, "/", http.StatusUnauthorized},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, "/", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, u.ID.Hex(), rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := middleware.AuthMiddleware(secret)(middleware.RequireRole("admin")(http.HandlerFunc(echoClaims)))

	for _, tc := range []struct {
		user   models.User
		status int
	}{
		{testutil.Admin("ann"), http.StatusOK},
		{testutil.Employee("erin"), http.StatusForbidden},
		{testutil.ClientUser("acme"), http.StatusForbidden},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, tc.user))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, tc.status, rec.Code, tc.user.Role)
	}
}

func TestCurrentUserResolvesAgainstState(t *testing.T) {
	known := testutil.Employee("erin")
	deleted := testutil.Employee("gone")
	store := state.NewStore(state.State{Users: []models.User{known}})
	users := services.NewUserService(store, nil, nil)

	h := middleware.AuthMiddleware(secret)(middleware.CurrentUser(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := middleware.GetCurrentUser(r.Context())
		require.True(t, ok)
		w.Write([]byte(u.Name))
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, known))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "erin", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, deleted))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoggingMiddlewareSetsRequestID(t *testing.T) {
	h := middleware.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/projects", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, rec.Header().Get(middleware.RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(middleware.RequestIDHeader))
}

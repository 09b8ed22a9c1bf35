package users

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/collaborators"
	"github.com/pecsa/pecsa-admin/internal/rbac"
	"github.com/pecsa/pecsa-admin/internal/shared"
	"github.com/pecsa/pecsa-admin/internal/view"
)

type availableStub []collaborators.Collaborator

func (s availableStub) ListAvailable(context.Context) ([]collaborators.Collaborator, error) {
	return s, nil
}

type userFixture struct {
	router   chi.Router
	repo     *memoryUserRepo
	sessions *shared.SessionManager
}

func newUserFixture(t *testing.T) userFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := view.NewEngine()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := newMemoryUserRepo()
	_, err = repo.Create(context.Background(), "admin", "hashed:x", 1, true)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), "ventas", "hashed:y", 2, true)
	require.NoError(t, err)

	free := availableStub{{ID: 9, DocumentNumber: "99887766", FirstName: "Rosa", LastName: "Huamán", Position: "Vendedora", Status: collaborators.StatusActive}}
	h := NewHandler(logger, newTestService(repo), free, engine, shared.NewCSRFManager("secret"), rbac.Middleware{Logger: logger})

	r := chi.NewRouter()
	r.Route("/users", h.MountRoutes)
	return userFixture{router: r, repo: repo, sessions: shared.NewSessionManager(client, "pecsa_session", time.Hour, false)}
}

func (f userFixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	admin := &auth.Principal{UserID: 1, Username: "admin", Roles: []string{shared.AdminRoleName}}
	ctx := auth.ContextWithPrincipal(shared.ContextWithSession(req.Context(), sess), admin)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req.WithContext(ctx))
	return rr, sess
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestUserListRenders(t *testing.T) {
	f := newUserFixture(t)
	rr, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/users/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ventas")
}

func TestNewUserFormListsAvailableCollaborators(t *testing.T) {
	f := newUserFixture(t)
	rr, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/users/new", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "99887766")
}

func TestHandlerCreateUserPasswordMismatch(t *testing.T) {
	f := newUserFixture(t)
	rr, _ := f.do(t, formRequest("/users/", url.Values{
		"collaborator_id":  {"9"},
		"username":         {"ventas2"},
		"password":         {"uno"},
		"password_confirm": {"dos"},
		"is_active":        {"on"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Las contraseñas no coinciden")
	assert.Len(t, f.repo.users, 2)
}

func TestCreateUserSucceeds(t *testing.T) {
	f := newUserFixture(t)
	rr, sess := f.do(t, formRequest("/users/", url.Values{
		"collaborator_id":  {"9"},
		"username":         {"ventas2"},
		"password":         {"clave"},
		"password_confirm": {"clave"},
		"is_active":        {"on"},
	}))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/users", rr.Header().Get("Location"))
	require.Len(t, f.repo.users, 3)
	assert.Equal(t, "hashed:clave", f.repo.users[3].hash)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Usuario creado exitosamente", flash.Message)
}

func TestDeleteOwnAccountRefused(t *testing.T) {
	f := newUserFixture(t)
	rr, sess := f.do(t, formRequest("/users/1/delete", url.Values{}))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Contains(t, f.repo.users, int64(1))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "error", flash.Kind)
	assert.Equal(t, "No puedes eliminar tu propio usuario", flash.Message)
}

func TestDeleteOtherUser(t *testing.T) {
	f := newUserFixture(t)
	rr, sess := f.do(t, formRequest("/users/2/delete", url.Values{}))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.NotContains(t, f.repo.users, int64(2))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Usuario eliminado", flash.Message)
}

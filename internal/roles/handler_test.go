package roles

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/rbac"
	"github.com/pecsa/pecsa-admin/internal/shared"
	"github.com/pecsa/pecsa-admin/internal/users"
	"github.com/pecsa/pecsa-admin/internal/view"
)

type directoryStub map[int64]users.User

func (d directoryStub) List(context.Context) ([]users.User, error) {
	out := make([]users.User, 0, len(d))
	for _, u := range d {
		out = append(out, u)
	}
	return out, nil
}

func (d directoryStub) Get(_ context.Context, id int64) (users.User, error) {
	u, ok := d[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

type assignerStub struct {
	held     map[int64][]int64
	replaced []int64
}

func (a *assignerStub) GetUserRoles(_ context.Context, userID int64) ([]rbac.AssignedRole, error) {
	out := []rbac.AssignedRole{}
	for _, id := range a.held[userID] {
		out = append(out, rbac.AssignedRole{ID: id})
	}
	return out, nil
}

func (a *assignerStub) ReplaceUserRoles(_ context.Context, userID int64, roleIDs []int64) error {
	a.replaced = roleIDs
	a.held[userID] = roleIDs
	return nil
}

type roleFixture struct {
	router   chi.Router
	repo     *memoryRoleRepo
	assigner *assignerStub
	sessions *shared.SessionManager
	ventasID int64
}

func newRoleFixture(t *testing.T) roleFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := view.NewEngine()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := newMemoryRoleRepo()
	repo.seed(shared.AdminRoleName, shared.PermAll, 1)
	ventasID := repo.seed("Ventas", "sales_read,sales_write,customers_read", 1)
	repo.seed("Finanzas", "finance_read,finance_write,reports_read", 0)

	dir := directoryStub{5: {ID: 5, Username: "ventas2", FirstName: "Rosa", LastName: "Huamán"}}
	assigner := &assignerStub{held: map[int64][]int64{}}
	h := NewHandler(logger, NewService(repo), dir, assigner, engine, shared.NewCSRFManager("secret"), rbac.Middleware{Logger: logger})

	r := chi.NewRouter()
	r.Route("/roles", h.MountRoutes)
	return roleFixture{
		router:   r,
		repo:     repo,
		assigner: assigner,
		sessions: shared.NewSessionManager(client, "pecsa_session", time.Hour, false),
		ventasID: ventasID,
	}
}

func (f roleFixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	admin := &auth.Principal{UserID: 1, Username: "admin", Roles: []string{shared.AdminRoleName}}
	ctx := auth.ContextWithPrincipal(shared.ContextWithSession(req.Context(), sess), admin)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req.WithContext(ctx))
	return rr, sess
}

func postValues(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestRoleListRenders(t *testing.T) {
	f := newRoleFixture(t)
	rr, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/roles/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Finanzas")
}

func TestCreateRoleFromCheckboxesAndExtra(t *testing.T) {
	f := newRoleFixture(t)
	rr, sess := f.do(t, postValues("/roles/", url.Values{
		"name":              {"Logística"},
		"permissions":       {"reports_read"},
		"extra_permissions": {"fleet_read, reports_read"},
	}))

	require.Equal(t, http.StatusSeeOther, rr.Code)
	created, err := f.repo.GetByName(context.Background(), "Logística")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports_read", "fleet_read"}, created.PermissionList())
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Rol creado exitosamente", flash.Message)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	f := newRoleFixture(t)
	rr, _ := f.do(t, postValues("/roles/", url.Values{"name": {"Ventas"}}))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "Ya existe un rol con ese nombre")
}

func TestDeleteRoleInUseFlashesCount(t *testing.T) {
	f := newRoleFixture(t)
	rr, sess := f.do(t, postValues("/roles/"+itoa(f.ventasID)+"/delete", url.Values{}))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Contains(t, f.repo.roles, f.ventasID)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "No se puede eliminar. El rol tiene 1 usuarios asignados", flash.Message)
}

func TestEditAdministratorRedirects(t *testing.T) {
	f := newRoleFixture(t)
	rr, sess := f.do(t, httptest.NewRequest(http.MethodGet, "/roles/1/edit", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "El rol Administrador no puede modificarse ni eliminarse", flash.Message)
}

func TestAssignmentsPageShowsHeldRoles(t *testing.T) {
	f := newRoleFixture(t)
	f.assigner.held[5] = []int64{f.ventasID}

	rr, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/roles/assignments?user_id=5", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Roles de Rosa Huamán")
	assert.Contains(t, body, `value="`+itoa(f.ventasID)+`" checked`)
}

func TestSaveAssignmentsReplacesSet(t *testing.T) {
	f := newRoleFixture(t)
	rr, sess := f.do(t, postValues("/roles/assignments", url.Values{
		"user_id": {"5"},
		"role_id": {itoa(f.ventasID), "3", "bogus"},
	}))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/roles/assignments?user_id=5", rr.Header().Get("Location"))
	assert.Equal(t, []int64{f.ventasID, 3}, f.assigner.replaced)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Roles actualizados para ventas2", flash.Message)
}

func TestSaveAssignmentsUnknownUser(t *testing.T) {
	f := newRoleFixture(t)
	rr, _ := f.do(t, postValues("/roles/assignments", url.Values{"user_id": {"77"}}))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/roles/assignments", rr.Header().Get("Location"))
	assert.Nil(t, f.assigner.replaced)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

package roles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pecsa/pecsa-admin/internal/shared"
)

type memoryRoleRepo struct {
	roles   map[int64]Role
	holders map[int64]int64
	nextID  int64
	txCalls int
	locked  []int64
}

func newMemoryRoleRepo() *memoryRoleRepo {
	return &memoryRoleRepo{roles: make(map[int64]Role), holders: make(map[int64]int64)}
}

func (m *memoryRoleRepo) seed(name, perms string, holders int64) int64 {
	m.nextID++
	p := perms
	m.roles[m.nextID] = Role{ID: m.nextID, Name: name, Permissions: &p}
	m.holders[m.nextID] = holders
	return m.nextID
}

func (m *memoryRoleRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	m.txCalls++
	return fn(ctx, m)
}

func (m *memoryRoleRepo) List(context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for id, r := range m.roles {
		r.UserCount = m.holders[id]
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRoleRepo) Get(_ context.Context, id int64) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("roles: get %d: %w", id, shared.ErrNotFound)
	}
	r.UserCount = m.holders[id]
	return r, nil
}

func (m *memoryRoleRepo) GetByName(_ context.Context, name string) (Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return Role{}, shared.ErrNotFound
}

func (m *memoryRoleRepo) Create(_ context.Context, name string, description, permissions *string) (int64, error) {
	m.nextID++
	m.roles[m.nextID] = Role{ID: m.nextID, Name: name, Description: description, Permissions: permissions}
	return m.nextID, nil
}

func (m *memoryRoleRepo) Update(_ context.Context, id int64, name string, description, permissions *string) error {
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	m.roles[id] = Role{ID: id, Name: name, Description: description, Permissions: permissions}
	return nil
}

func (m *memoryRoleRepo) LockForUpdate(ctx context.Context, id int64) (Role, error) {
	m.locked = append(m.locked, id)
	return m.Get(ctx, id)
}

func (m *memoryRoleRepo) CountUsers(_ context.Context, id int64) (int64, error) {
	return m.holders[id], nil
}

func (m *memoryRoleRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *memoryRoleRepo) Count(context.Context) (int64, error) {
	return int64(len(m.roles)), nil
}

func TestCreateRoleMergesPermissions(t *testing.T) {
	repo := newMemoryRoleRepo()
	svc := NewService(repo)

	id, err := svc.Create(context.Background(), Input{
		Name:        "  Auditoría  ",
		Description: " Revisión ",
		Permissions: []string{shared.PermFinanceRead, shared.PermReportsRead, shared.PermFinanceRead},
		Extra:       "audit_read, reports_read ,",
	})
	require.NoError(t, err)

	stored := repo.roles[id]
	assert.Equal(t, "Auditoría", stored.Name)
	require.NotNil(t, stored.Description)
	assert.Equal(t, "Revisión", *stored.Description)
	require.NotNil(t, stored.Permissions)
	assert.Equal(t, "finance_read,reports_read,audit_read", *stored.Permissions)
}

func TestCreateRoleWithoutPermissionsStoresNull(t *testing.T) {
	repo := newMemoryRoleRepo()
	svc := NewService(repo)

	id, err := svc.Create(context.Background(), Input{Name: "Invitado"})
	require.NoError(t, err)
	assert.Nil(t, repo.roles[id].Permissions)
	assert.Nil(t, repo.roles[id].Description)
	assert.Empty(t, repo.roles[id].PermissionList())
}

func TestCreateRoleRejectsDuplicateName(t *testing.T) {
	repo := newMemoryRoleRepo()
	repo.seed("Ventas", "sales_read", 0)
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), Input{Name: "Ventas"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConstraintViolation)
	assert.ErrorIs(t, err, shared.ErrDuplicateRoleName)
}

func TestCreateRoleRejectsAdministratorName(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())
	_, err := svc.Create(context.Background(), Input{Name: "administrador"})
	assert.ErrorIs(t, err, shared.ErrProtectedRole)
}

func TestCreateRoleValidation(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())
	_, err := svc.Create(context.Background(), Input{Name: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, shared.FieldErrors(err), "Name")
}

func TestUpdateRoleKeepsOwnName(t *testing.T) {
	repo := newMemoryRoleRepo()
	id := repo.seed("Compras", "purchases_read", 1)
	svc := NewService(repo)

	err := svc.Update(context.Background(), id, Input{Name: "Compras", Permissions: []string{shared.PermPurchasesRead, shared.PermSuppliersRead}})
	require.NoError(t, err)
	assert.Equal(t, []string{"purchases_read", "suppliers_read"}, repo.roles[id].PermissionList())
}

func TestUpdateRoleProtected(t *testing.T) {
	repo := newMemoryRoleRepo()
	admin := repo.seed(shared.AdminRoleName, shared.PermAll, 1)
	sales := repo.seed("Ventas", "sales_read", 1)
	svc := NewService(repo)

	err := svc.Update(context.Background(), admin, Input{Name: shared.AdminRoleName})
	assert.ErrorIs(t, err, shared.ErrProtectedRole)

	err = svc.Update(context.Background(), sales, Input{Name: "Administrador"})
	assert.ErrorIs(t, err, shared.ErrProtectedRole)
	assert.Equal(t, "Ventas", repo.roles[sales].Name)
}

func TestUpdateRoleMissing(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())
	err := svc.Update(context.Background(), 99, Input{Name: "Nada"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteRoleInUse(t *testing.T) {
	repo := newMemoryRoleRepo()
	id := repo.seed("Finanzas", "finance_read", 2)
	svc := NewService(repo)

	err := svc.Delete(context.Background(), id)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrRoleInUse)

	var inUse *InUseError
	require.True(t, errors.As(err, &inUse))
	assert.Equal(t, int64(2), inUse.Users)
	assert.Equal(t, "No se puede eliminar. El rol tiene 2 usuarios asignados", inUse.Message())
	assert.Contains(t, repo.roles, id)
	assert.Equal(t, 1, repo.txCalls)
	assert.Equal(t, []int64{id}, repo.locked)
}

func TestDeleteRoleUnused(t *testing.T) {
	repo := newMemoryRoleRepo()
	id := repo.seed("Temporal", "", 0)
	svc := NewService(repo)

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.NotContains(t, repo.roles, id)
}

func TestDeleteRoleProtected(t *testing.T) {
	repo := newMemoryRoleRepo()
	id := repo.seed(shared.AdminRoleName, shared.PermAll, 0)
	svc := NewService(repo)

	assert.ErrorIs(t, svc.Delete(context.Background(), id), shared.ErrProtectedRole)
	assert.Contains(t, repo.roles, id)
}

func TestDeleteRoleMissing(t *testing.T) {
	svc := NewService(newMemoryRoleRepo())
	assert.ErrorIs(t, svc.Delete(context.Background(), 7), shared.ErrNotFound)
}

func TestSplitCatalog(t *testing.T) {
	known, extra := splitCatalog([]string{"sales_read", "audit_read", "reports_read", "all"})
	assert.Equal(t, []string{"sales_read", "reports_read"}, known)
	assert.Equal(t, []string{"audit_read", "all"}, extra)
}

package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/collaborators"
	"github.com/pecsa/pecsa-admin/internal/shared"
)

type stubSource struct {
	stats      collaborators.Stats
	total      int64
	active     int64
	roles      int64
	err        error
	statsCalls int
}

func (s *stubSource) Stats(context.Context) (collaborators.Stats, error) {
	s.statsCalls++
	return s.stats, s.err
}

func (s *stubSource) Counts(context.Context) (int64, int64, error) {
	return s.total, s.active, nil
}

func (s *stubSource) Count(context.Context) (int64, error) {
	return s.roles, nil
}

func TestBuildAdminIncludesStats(t *testing.T) {
	src := &stubSource{stats: collaborators.Stats{Total: 4, Active: 3, Inactive: 1}, total: 4, active: 4, roles: 4}
	svc := NewService(src, src, src)

	page, err := svc.Build(context.Background(), &auth.Principal{FirstName: "Carlos", LastName: "Rodríguez", Roles: []string{shared.AdminRoleName}})
	require.NoError(t, err)
	require.NotNil(t, page.Stats)
	assert.Equal(t, int64(4), page.Stats.Collaborators.Total)
	assert.Equal(t, int64(3), page.Stats.Collaborators.Active)
	assert.Equal(t, int64(4), page.Stats.UsersActive)
	assert.Equal(t, int64(4), page.Stats.Roles)
	assert.Equal(t, "Carlos Rodríguez", page.Welcome.Name)
	assert.Len(t, page.Shortcuts, 4)
}

func TestBuildNonAdminSkipsStats(t *testing.T) {
	src := &stubSource{}
	svc := NewService(src, src, src)
	last := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)

	page, err := svc.Build(context.Background(), &auth.Principal{
		FirstName:   "María",
		Roles:       []string{"Ventas"},
		Permissions: []string{"sales_read", "sales_write"},
		LastLogin:   &last,
	})
	require.NoError(t, err)
	assert.Nil(t, page.Stats)
	assert.Zero(t, src.statsCalls)
	require.Len(t, page.Shortcuts, 1)
	assert.Equal(t, "Módulo de Ventas", page.Shortcuts[0].Title)
	assert.Equal(t, &last, page.Welcome.LastLogin)
}

func TestBuildPropagatesStatsFailure(t *testing.T) {
	src := &stubSource{err: shared.ErrDatabaseUnavailable}
	svc := NewService(src, src, src)

	_, err := svc.Build(context.Background(), &auth.Principal{Roles: []string{shared.AdminRoleName}})
	assert.True(t, errors.Is(err, shared.ErrDatabaseUnavailable))
}

func TestBuildRequiresPrincipal(t *testing.T) {
	svc := NewService(&stubSource{}, &stubSource{}, &stubSource{})
	_, err := svc.Build(context.Background(), nil)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

package collaborators

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pecsa/pecsa-admin/internal/shared"
)

type memoryRepo struct {
	nextID int64
	rows   map[int64]Collaborator
	owned  map[int64]bool
}

func newMemoryRepo(seed ...Collaborator) *memoryRepo {
	m := &memoryRepo{rows: map[int64]Collaborator{}, owned: map[int64]bool{}}
	for _, c := range seed {
		m.nextID++
		c.ID = m.nextID
		if c.Status == "" {
			c.Status = StatusActive
		}
		m.rows[c.ID] = c
	}
	return m
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Collaborator, error) {
	out := []Collaborator{}
	needle := strings.ToLower(filter.Search)
	for _, c := range m.rows {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(c.FirstName+" "+c.LastName+" "+c.DocumentNumber), needle) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Collaborator) int {
		if a.LastName != b.LastName {
			return strings.Compare(a.LastName, b.LastName)
		}
		return strings.Compare(a.FirstName, b.FirstName)
	})
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Collaborator, error) {
	c, ok := m.rows[id]
	if !ok {
		return Collaborator{}, fmt.Errorf("collaborator %d: %w", id, shared.ErrNotFound)
	}
	return c, nil
}

func (m *memoryRepo) GetByDocument(_ context.Context, document string) (Collaborator, error) {
	for _, c := range m.rows {
		if c.DocumentNumber == document {
			return c, nil
		}
	}
	return Collaborator{}, shared.ErrNotFound
}

func (m *memoryRepo) Create(_ context.Context, in CreateInput) (int64, error) {
	m.nextID++
	status := in.Status
	if status == "" {
		status = StatusActive
	}
	c := Collaborator{
		ID:             m.nextID,
		DocumentNumber: in.DocumentNumber,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Position:       in.Position,
		Status:         status,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if in.Phone != "" {
		c.Phone = &in.Phone
	}
	if in.Email != "" {
		c.Email = &in.Email
	}
	m.rows[c.ID] = c
	return c.ID, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, in UpdateInput) error {
	c, ok := m.rows[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.FirstName, c.LastName, c.Position = in.FirstName, in.LastName, in.Position
	if in.Status != "" {
		c.Status = in.Status
	}
	m.rows[id] = c
	return nil
}

func (m *memoryRepo) SetStatus(_ context.Context, id int64, status Status) error {
	c, ok := m.rows[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Status = status
	m.rows[id] = c
	return nil
}

func (m *memoryRepo) Stats(context.Context) (Stats, error) {
	var st Stats
	positions := map[string]int64{}
	for _, c := range m.rows {
		st.Total++
		if c.IsActive() {
			st.Active++
			positions[c.Position]++
		} else {
			st.Inactive++
		}
	}
	st.Positions = int64(len(positions))
	return st, nil
}

func (m *memoryRepo) ListAvailable(context.Context) ([]Collaborator, error) {
	out := []Collaborator{}
	for _, c := range m.rows {
		if c.IsActive() && !m.owned[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func validCreate() CreateInput {
	return CreateInput{
		DocumentNumber: "55667788",
		FirstName:      "Lucía",
		LastName:       "Torres",
		Position:       "Analista",
		Email:          "lucia@pecsa.com",
	}
}

func TestCreateNormalizesInput(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	in := validCreate()
	in.DocumentNumber = "  55667788 "
	in.FirstName = "  Lucía   María "
	in.Email = " LUCIA@PECSA.COM "
	id, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	got := repo.rows[id]
	assert.Equal(t, "55667788", got.DocumentNumber)
	assert.Equal(t, "Lucía María", got.FirstName)
	require.NotNil(t, got.Email)
	assert.Equal(t, "lucia@pecsa.com", *got.Email)
	assert.Nil(t, got.Phone)
	assert.Equal(t, StatusActive, got.Status)
}

func TestCreateRejectsDuplicateDocument(t *testing.T) {
	repo := newMemoryRepo(Collaborator{DocumentNumber: "55667788", FirstName: "Otro", LastName: "Registro", Position: "Asistente"})
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), validCreate())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrDuplicateDocument)
	assert.ErrorIs(t, err, shared.ErrConstraintViolation)
	assert.Equal(t, "Ya existe un colaborador con ese número de documento", shared.UserSafeMessage(err))
	assert.Len(t, repo.rows, 1)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	in := validCreate()
	in.FirstName = "   "
	in.Email = "no-es-correo"
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)

	fields := shared.FieldErrors(err)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "FirstName")
	assert.Contains(t, fields, "Email")
	assert.NotContains(t, fields, "LastName")
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMemoryRepo())
	in := validCreate()
	in.Status = "retired"
	_, err := svc.Create(context.Background(), in)
	assert.Contains(t, shared.FieldErrors(err), "Status")
}

func TestUpdateMissingCollaborator(t *testing.T) {
	svc := NewService(newMemoryRepo())
	err := svc.Update(context.Background(), 99, UpdateInput{FirstName: "A", LastName: "B", Position: "C"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSoftDeleteAndActivate(t *testing.T) {
	repo := newMemoryRepo(Collaborator{DocumentNumber: "1", FirstName: "Ana", LastName: "García", Position: "Contador"})
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.SoftDelete(ctx, 1))
	assert.Equal(t, StatusInactive, repo.rows[1].Status)
	assert.Len(t, repo.rows, 1)

	require.NoError(t, svc.Activate(ctx, 1))
	assert.True(t, repo.rows[1].IsActive())
}

func TestListIgnoresUnknownStatusFilter(t *testing.T) {
	repo := newMemoryRepo(
		Collaborator{DocumentNumber: "1", FirstName: "Ana", LastName: "García", Position: "Contador"},
		Collaborator{DocumentNumber: "2", FirstName: "Juan", LastName: "Pérez", Position: "Jefe de Compras", Status: StatusInactive},
	)
	svc := NewService(repo)
	ctx := context.Background()

	all, err := svc.List(ctx, ListFilter{Status: "bogus"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inactive, err := svc.List(ctx, ListFilter{Status: StatusInactive})
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "Juan Pérez", inactive[0].FullName())

	found, err := svc.List(ctx, ListFilter{Search: "  garcía "})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "1", found[0].DocumentNumber)
}

func TestStatsAndAvailable(t *testing.T) {
	repo := newMemoryRepo(
		Collaborator{DocumentNumber: "1", FirstName: "Ana", LastName: "García", Position: "Contador"},
		Collaborator{DocumentNumber: "2", FirstName: "Juan", LastName: "Pérez", Position: "Contador"},
		Collaborator{DocumentNumber: "3", FirstName: "Luis", LastName: "Rojas", Position: "Chofer", Status: StatusInactive},
	)
	repo.owned[1] = true
	svc := NewService(repo)
	ctx := context.Background()

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(2), st.Active)
	assert.Equal(t, int64(1), st.Inactive)
	assert.Equal(t, int64(1), st.Positions)

	available, err := svc.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, int64(2), available[0].ID)
}

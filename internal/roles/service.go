package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/pecsa/pecsa-admin/internal/shared"
)

// Service enforces role rules: unique names, the protected administrator
// role and the in-use guard on delete.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// List returns roles with their live user count, ordered by name.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get fetches a role by id.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	return s.repo.Get(ctx, id)
}

// GetByName fetches a role by its exact name.
func (s *Service) GetByName(ctx context.Context, name string) (Role, error) {
	return s.repo.GetByName(ctx, normalizeRoleName(name))
}

// Count returns how many roles exist.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Create stores a new role. The administrator name is reserved.
func (s *Service) Create(ctx context.Context, in Input) (int64, error) {
	in = normalizeInput(in)
	if err := s.validate.Struct(in); err != nil {
		return 0, shared.NewValidationError(err)
	}
	if isAdminName(in.Name) {
		return 0, fmt.Errorf("roles: create: %w", shared.ErrProtectedRole)
	}
	if err := s.ensureNameFree(ctx, in.Name, 0); err != nil {
		return 0, err
	}
	return s.repo.Create(ctx, in.Name, optional(in.Description), optional(shared.JoinPermissions(in.Tokens())))
}

// Update overwrites name, description and permissions of a role.
func (s *Service) Update(ctx context.Context, id int64, in Input) error {
	in = normalizeInput(in)
	if err := s.validate.Struct(in); err != nil {
		return shared.NewValidationError(err)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.IsProtected() || isAdminName(in.Name) {
		return fmt.Errorf("roles: update %d: %w", id, shared.ErrProtectedRole)
	}
	if err := s.ensureNameFree(ctx, in.Name, id); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, in.Name, optional(in.Description), optional(shared.JoinPermissions(in.Tokens())))
}

// Delete removes a role nobody holds. The row is locked while the holders
// are counted so a concurrent assignment cannot slip in between.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		role, err := repo.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if role.IsProtected() {
			return fmt.Errorf("roles: delete %d: %w", id, shared.ErrProtectedRole)
		}
		holders, err := repo.CountUsers(ctx, id)
		if err != nil {
			return err
		}
		if holders > 0 {
			return &InUseError{Role: role.Name, Users: holders}
		}
		return repo.Delete(ctx, id)
	})
}

func (s *Service) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.GetByName(ctx, name)
	switch {
	case err == nil:
		if existing.ID == selfID {
			return nil
		}
		return fmt.Errorf("roles: %w: %w", shared.ErrConstraintViolation, shared.ErrDuplicateRoleName)
	case errors.Is(err, shared.ErrNotFound):
		return nil
	default:
		return err
	}
}

func normalizeInput(in Input) Input {
	in.Name = normalizeRoleName(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Permissions = shared.NormalizePermissions(in.Permissions)
	return in
}

func normalizeRoleName(v string) string {
	return norm.NFC.String(strings.Join(strings.Fields(v), " "))
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo     Repository
	validate *validator.Validate
	hash     func(string) (string, error)
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: newValidator(), hash: auth.HashPassword}
}

// newValidator adds bcryptlen, which bounds passwords in bytes instead of
// characters.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= auth.MaxPasswordBytes
	})
	return v
}

// List returns users with their collaborator and role names.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// GetByUsername fetches a user by username.
func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.GetByUsername(ctx, normalizeUsername(username))
}

// Create hashes the password and stores a new user bound to a collaborator.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	in.Username = normalizeUsername(in.Username)
	if err := s.validate.Struct(in); err != nil {
		return 0, shared.NewValidationError(err)
	}
	if in.Password != in.ConfirmPassword {
		return 0, shared.ErrPasswordMismatch
	}
	if err := s.ensureUsernameFree(ctx, in.Username, 0); err != nil {
		return 0, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return 0, err
	}
	return s.repo.Create(ctx, in.Username, hash, in.CollaboratorID, in.IsActive)
}

// Update changes username and active flag, and the password only when a new
// one is supplied.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	in.Username = normalizeUsername(in.Username)
	if err := s.validate.Struct(in); err != nil {
		return shared.NewValidationError(err)
	}
	if err := s.ensureUsernameFree(ctx, in.Username, id); err != nil {
		return err
	}
	var hash *string
	if in.Password != "" {
		if in.Password != in.ConfirmPassword {
			return shared.ErrPasswordMismatch
		}
		h, err := s.hash(in.Password)
		if err != nil {
			return err
		}
		hash = &h
	}
	return s.repo.Update(ctx, id, in.Username, hash, in.IsActive)
}

// SetActive activates or deactivates a user.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// ChangePassword replaces the stored hash after checking the confirmation.
func (s *Service) ChangePassword(ctx context.Context, id int64, in PasswordInput) error {
	if err := s.validate.Struct(in); err != nil {
		return shared.NewValidationError(err)
	}
	if in.Password != in.ConfirmPassword {
		return shared.ErrPasswordMismatch
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, id, hash)
}

// Delete removes a user. actorID is the authenticated user issuing the
// request; nobody may delete their own account.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return fmt.Errorf("users: delete %d: %w", id, shared.ErrSelfDeletion)
	}
	return s.repo.Delete(ctx, id)
}

// Counts returns total and active users.
func (s *Service) Counts(ctx context.Context) (total, active int64, err error) {
	return s.repo.CountActive(ctx)
}

func (s *Service) ensureUsernameFree(ctx context.Context, username string, selfID int64) error {
	existing, err := s.repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.ID == selfID {
			return nil
		}
		return fmt.Errorf("users: %w: %w", shared.ErrConstraintViolation, shared.ErrDuplicateUsername)
	case errors.Is(err, shared.ErrNotFound):
		return nil
	default:
		return err
	}
}

func normalizeUsername(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

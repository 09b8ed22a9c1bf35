package collaborators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/pecsa/pecsa-admin/internal/shared"
)

// Service enforces collaborator business rules.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// List returns collaborators ordered by last name then first name.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Collaborator, error) {
	filter.Search = norm.NFC.String(strings.TrimSpace(filter.Search))
	if filter.Status != "" && filter.Status != StatusActive && filter.Status != StatusInactive {
		filter.Status = ""
	}
	return s.repo.List(ctx, filter)
}

// Get fetches a collaborator by id.
func (s *Service) Get(ctx context.Context, id int64) (Collaborator, error) {
	return s.repo.Get(ctx, id)
}

// GetByDocument fetches a collaborator by document number.
func (s *Service) GetByDocument(ctx context.Context, document string) (Collaborator, error) {
	return s.repo.GetByDocument(ctx, strings.TrimSpace(document))
}

// Create registers a collaborator after checking the document is free.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	in = normalizeCreate(in)
	if err := s.validate.Struct(in); err != nil {
		return 0, shared.NewValidationError(err)
	}
	_, err := s.repo.GetByDocument(ctx, in.DocumentNumber)
	switch {
	case err == nil:
		return 0, fmt.Errorf("collaborators: create: %w: %w", shared.ErrConstraintViolation, shared.ErrDuplicateDocument)
	case !errors.Is(err, shared.ErrNotFound):
		return 0, err
	}
	return s.repo.Create(ctx, in)
}

// Update overwrites the mutable fields of a collaborator.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	in = normalizeUpdate(in)
	if err := s.validate.Struct(in); err != nil {
		return shared.NewValidationError(err)
	}
	return s.repo.Update(ctx, id, in)
}

// SoftDelete marks the collaborator inactive. The row is kept.
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusInactive)
}

// Activate marks the collaborator active again.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusActive)
}

// Stats summarizes headcount.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

// ListAvailable returns active collaborators that do not own a user yet.
func (s *Service) ListAvailable(ctx context.Context) ([]Collaborator, error) {
	return s.repo.ListAvailable(ctx)
}

func normalizeCreate(in CreateInput) CreateInput {
	in.DocumentNumber = strings.TrimSpace(in.DocumentNumber)
	in.FirstName = normalizeName(in.FirstName)
	in.LastName = normalizeName(in.LastName)
	in.Position = normalizeName(in.Position)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = lowerEmail(in.Email)
	return in
}

func normalizeUpdate(in UpdateInput) UpdateInput {
	in.FirstName = normalizeName(in.FirstName)
	in.LastName = normalizeName(in.LastName)
	in.Position = normalizeName(in.Position)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = lowerEmail(in.Email)
	return in
}

// normalizeName trims, collapses inner whitespace and composes accents so
// "José" typed with a combining mark matches the precomposed form.
func normalizeName(v string) string {
	return norm.NFC.String(strings.Join(strings.Fields(v), " "))
}

func lowerEmail(v string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(v))
}

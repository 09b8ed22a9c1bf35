package rbac

import (
	"context"
	"fmt"
	"slices"
)

// Service orchestrates user-role assignments.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetUserRoles returns the roles held by userID ordered by name.
func (s *Service) GetUserRoles(ctx context.Context, userID int64) ([]AssignedRole, error) {
	return s.repo.GetUserRoles(ctx, userID)
}

// AssignRole links a role to a user. Assigning a held role is a no-op.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.AssignRole(ctx, userID, roleID)
}

// RemoveRole unlinks a role from a user. Removing an absent link is a no-op.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.RemoveRole(ctx, userID, roleID)
}

// ReplaceUserRoles swaps the user's whole role set for roleIDs in one
// transaction. Readers observe either the old set or the new one.
func (s *Service) ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	ids := dedupe(roleIDs)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.RemoveAllRoles(ctx, userID); err != nil {
			return err
		}
		for _, id := range ids {
			if err := repo.AssignRole(ctx, userID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rbac: replace roles of user %d: %w", userID, err)
	}
	return nil
}

// RoleIDs extracts ids from assigned roles.
func RoleIDs(roles []AssignedRole) []int64 {
	ids := make([]int64, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	return ids
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

package rbac

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pecsa/pecsa-admin/internal/platform/db"
)

// Repository persists user-role links.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	GetUserRoles(ctx context.Context, userID int64) ([]AssignedRole, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	RemoveAllRoles(ctx context.Context, userID int64) error
}

type pgRepository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{db: pool, pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgRepository{db: tx, pool: r.pool})
	})
}

func (r *pgRepository) GetUserRoles(ctx context.Context, userID int64) ([]AssignedRole, error) {
	roles, err := db.All[AssignedRole](ctx, r.db, `
		SELECT r.id, r.name, r.description, r.permissions,
		       COALESCE(ur.assigned_at, CURRENT_TIMESTAMP) AS assigned_at
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: user roles %d: %w", userID, err)
	}
	return roles, nil
}

func (r *pgRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := db.Exec(ctx, r.db, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID); err != nil {
		return fmt.Errorf("rbac: assign role %d to user %d: %w", roleID, userID, err)
	}
	return nil
}

func (r *pgRepository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if _, err := db.Exec(ctx, r.db, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID); err != nil {
		return fmt.Errorf("rbac: remove role %d from user %d: %w", roleID, userID, err)
	}
	return nil
}

func (r *pgRepository) RemoveAllRoles(ctx context.Context, userID int64) error {
	if _, err := db.Exec(ctx, r.db, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("rbac: clear roles of user %d: %w", userID, err)
	}
	return nil
}

var _ Repository = (*pgRepository)(nil)

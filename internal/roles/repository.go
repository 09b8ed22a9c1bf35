package roles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pecsa/pecsa-admin/internal/platform/db"
	"github.com/pecsa/pecsa-admin/internal/shared"
)

const nameUniqueConstraint = "roles_name_key"

// Repository defines role persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	GetByName(ctx context.Context, name string) (Role, error)
	Create(ctx context.Context, name string, description, permissions *string) (int64, error)
	Update(ctx context.Context, id int64, name string, description, permissions *string) error
	// LockForUpdate fetches the role and holds a row lock until the
	// surrounding transaction ends.
	LockForUpdate(ctx context.Context, id int64) (Role, error)
	CountUsers(ctx context.Context, id int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
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

const selectRoles = `
SELECT r.id, r.name, r.description, r.permissions,
       COUNT(ur.user_id) AS user_count,
       COALESCE(r.created_at, now()) AS created_at,
       COALESCE(r.updated_at, now()) AS updated_at
FROM roles r
LEFT JOIN user_roles ur ON ur.role_id = r.id`

const groupRoles = ` GROUP BY r.id`

func (r *pgRepository) List(ctx context.Context) ([]Role, error) {
	items, err := db.All[Role](ctx, r.db, selectRoles+groupRoles+" ORDER BY r.name")
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	return items, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Role, error) {
	role, err := db.One[Role](ctx, r.db, selectRoles+" WHERE r.id = $1"+groupRoles, id)
	if err != nil {
		return Role{}, fmt.Errorf("roles: get %d: %w", id, err)
	}
	return role, nil
}

func (r *pgRepository) GetByName(ctx context.Context, name string) (Role, error) {
	role, err := db.One[Role](ctx, r.db, selectRoles+" WHERE r.name = $1"+groupRoles, name)
	if err != nil {
		return Role{}, fmt.Errorf("roles: get by name: %w", err)
	}
	return role, nil
}

func (r *pgRepository) Create(ctx context.Context, name string, description, permissions *string) (int64, error) {
	res, err := db.Execute(ctx, r.db, db.ModeOne, `
		INSERT INTO roles (name, description, permissions)
		VALUES ($1, $2, $3)
		RETURNING id`, name, description, permissions)
	if err != nil {
		return 0, fmt.Errorf("roles: create: %w", mapConstraint(err))
	}
	id, ok := res.One()["id"].(int32)
	if !ok {
		return 0, fmt.Errorf("roles: create: unexpected id %T", res.One()["id"])
	}
	return int64(id), nil
}

func (r *pgRepository) Update(ctx context.Context, id int64, name string, description, permissions *string) error {
	n, err := db.Exec(ctx, r.db, `
		UPDATE roles SET name = $2, description = $3, permissions = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, name, description, permissions)
	if err != nil {
		return fmt.Errorf("roles: update %d: %w", id, mapConstraint(err))
	}
	if n == 0 {
		return fmt.Errorf("roles: update %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) LockForUpdate(ctx context.Context, id int64) (Role, error) {
	role, err := db.One[Role](ctx, r.db, `
		SELECT r.id, r.name, r.description, r.permissions,
		       COALESCE(r.created_at, now()) AS created_at,
		       COALESCE(r.updated_at, now()) AS updated_at
		FROM roles r
		WHERE r.id = $1
		FOR UPDATE`, id)
	if err != nil {
		return Role{}, fmt.Errorf("roles: lock %d: %w", id, err)
	}
	return role, nil
}

func (r *pgRepository) CountUsers(ctx context.Context, id int64) (int64, error) {
	res, err := db.Execute(ctx, r.db, db.ModeOne, `SELECT COUNT(*) AS total FROM user_roles WHERE role_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("roles: count users %d: %w", id, err)
	}
	total, _ := res.One()["total"].(int64)
	return total, nil
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	n, err := db.Exec(ctx, r.db, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("roles: delete %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("roles: delete %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) Count(ctx context.Context) (int64, error) {
	res, err := db.Execute(ctx, r.db, db.ModeOne, `SELECT COUNT(*) AS total FROM roles`)
	if err != nil {
		return 0, fmt.Errorf("roles: count: %w", err)
	}
	total, _ := res.One()["total"].(int64)
	return total, nil
}

func mapConstraint(err error) error {
	if db.IsUniqueViolation(err, nameUniqueConstraint) {
		return fmt.Errorf("%w: %w", shared.ErrDuplicateRoleName, err)
	}
	return err
}

var _ Repository = (*pgRepository)(nil)

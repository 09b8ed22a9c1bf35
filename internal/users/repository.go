package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pecsa/pecsa-admin/internal/platform/db"
	"github.com/pecsa/pecsa-admin/internal/shared"
)

const (
	usernameUniqueConstraint     = "users_username_key"
	collaboratorUniqueConstraint = "users_collaborator_id_key"
	collaboratorForeignKey       = "users_collaborator_id_fkey"
)

// Repository defines user persistence. Password hashes arrive already hashed.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, username, passwordHash string, collaboratorID int64, active bool) (int64, error)
	Update(ctx context.Context, id int64, username string, passwordHash *string, active bool) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetPasswordHash(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	CountActive(ctx context.Context) (total, active int64, err error)
}

type pgRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{db: pool}
}

const selectUsers = `
SELECT u.id, u.username, COALESCE(u.collaborator_id, 0) AS collaborator_id,
       COALESCE(u.is_active, false) AS is_active, u.last_login,
       COALESCE(u.created_at, now()) AS created_at, COALESCE(u.updated_at, now()) AS updated_at,
       c.first_name, c.last_name, c.document_number, c.position,
       COALESCE(array_remove(array_agg(r.name::text ORDER BY r.name), NULL), '{}') AS roles
FROM users u
JOIN collaborators c ON c.id = u.collaborator_id
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id`

const groupUsers = ` GROUP BY u.id, c.id`

func (r *pgRepository) List(ctx context.Context) ([]User, error) {
	items, err := db.All[User](ctx, r.db, selectUsers+groupUsers+" ORDER BY c.last_name, c.first_name")
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return items, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (User, error) {
	u, err := db.One[User](ctx, r.db, selectUsers+" WHERE u.id = $1"+groupUsers, id)
	if err != nil {
		return User{}, fmt.Errorf("users: get %d: %w", id, err)
	}
	return u, nil
}

func (r *pgRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	u, err := db.One[User](ctx, r.db, selectUsers+" WHERE u.username = $1"+groupUsers, username)
	if err != nil {
		return User{}, fmt.Errorf("users: get by username: %w", err)
	}
	return u, nil
}

func (r *pgRepository) Create(ctx context.Context, username, passwordHash string, collaboratorID int64, active bool) (int64, error) {
	res, err := db.Execute(ctx, r.db, db.ModeOne, `
		INSERT INTO users (username, password_hash, collaborator_id, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, username, passwordHash, collaboratorID, active)
	if err != nil {
		return 0, fmt.Errorf("users: create: %w", mapConstraint(err))
	}
	id, ok := res.One()["id"].(int32)
	if !ok {
		return 0, fmt.Errorf("users: create: unexpected id %T", res.One()["id"])
	}
	return int64(id), nil
}

func (r *pgRepository) Update(ctx context.Context, id int64, username string, passwordHash *string, active bool) error {
	var (
		n   int64
		err error
	)
	if passwordHash != nil {
		n, err = db.Exec(ctx, r.db, `
			UPDATE users SET username = $2, password_hash = $3, is_active = $4, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`, id, username, *passwordHash, active)
	} else {
		n, err = db.Exec(ctx, r.db, `
			UPDATE users SET username = $2, is_active = $3, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`, id, username, active)
	}
	if err != nil {
		return fmt.Errorf("users: update %d: %w", id, mapConstraint(err))
	}
	if n == 0 {
		return fmt.Errorf("users: update %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) SetActive(ctx context.Context, id int64, active bool) error {
	n, err := db.Exec(ctx, r.db, `UPDATE users SET is_active = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("users: set active %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("users: set active %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) SetPasswordHash(ctx context.Context, id int64, passwordHash string) error {
	n, err := db.Exec(ctx, r.db, `UPDATE users SET password_hash = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("users: set password %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("users: set password %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// Delete removes the user row; role links cascade.
func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	n, err := db.Exec(ctx, r.db, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: delete %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("users: delete %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) CountActive(ctx context.Context) (int64, int64, error) {
	res, err := db.Execute(ctx, r.db, db.ModeOne,
		`SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_active) AS active FROM users`)
	if err != nil {
		return 0, 0, fmt.Errorf("users: count: %w", err)
	}
	row := res.One()
	total, _ := row["total"].(int64)
	active, _ := row["active"].(int64)
	return total, active, nil
}

func mapConstraint(err error) error {
	switch {
	case db.IsUniqueViolation(err, usernameUniqueConstraint):
		return fmt.Errorf("%w: %w", shared.ErrDuplicateUsername, err)
	case db.IsUniqueViolation(err, collaboratorUniqueConstraint):
		return fmt.Errorf("%w: %w", shared.ErrCollaboratorTaken, err)
	case db.IsForeignKeyViolation(err, collaboratorForeignKey):
		return fmt.Errorf("%w: collaborator: %w", shared.ErrNotFound, err)
	default:
		return err
	}
}

var _ Repository = (*pgRepository)(nil)

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pecsa/pecsa-admin/internal/platform/db"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindCredential(ctx context.Context, username string) (Credential, error)
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const findCredentialSQL = `
SELECT u.id, u.username, u.password_hash, COALESCE(u.is_active, false) AS is_active, u.last_login,
       c.id AS collaborator_id, c.first_name, c.last_name, c.position, c.email,
       COALESCE(array_remove(array_agg(r.name::text ORDER BY r.name), NULL), '{}') AS roles,
       COALESCE(array_remove(array_agg(r.permissions), NULL), '{}') AS permissions
FROM users u
JOIN collaborators c ON c.id = u.collaborator_id
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
WHERE u.username = $1
GROUP BY u.id, c.id`

// FindCredential loads the user, its collaborator profile and aggregated roles.
// Inactive users are returned too; the service decides.
func (r *PGRepository) FindCredential(ctx context.Context, username string) (Credential, error) {
	cred, err := db.One[Credential](ctx, r.db, findCredentialSQL, username)
	if err != nil {
		return Credential{}, fmt.Errorf("auth: find credential: %w", err)
	}
	return cred, nil
}

// TouchLastLogin records a successful login.
func (r *PGRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	n, err := db.Exec(ctx, r.db, `UPDATE users SET last_login = $2 WHERE id = $1`, userID, at)
	if err != nil {
		return fmt.Errorf("auth: touch last login: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("auth: touch last login: user %d vanished", userID)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)

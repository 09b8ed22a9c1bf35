package rbac

import "time"

// AssignedRole is a role held by a user together with when it was granted.
type AssignedRole struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	Permissions *string   `db:"permissions"`
	AssignedAt  time.Time `db:"assigned_at"`
}

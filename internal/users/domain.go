package users

import "time"

// User is a login identity joined with its collaborator profile. The password
// hash is never loaded into this type.
type User struct {
	ID             int64      `db:"id"`
	Username       string     `db:"username"`
	CollaboratorID int64      `db:"collaborator_id"`
	IsActive       bool       `db:"is_active"`
	LastLogin      *time.Time `db:"last_login"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	FirstName      string     `db:"first_name"`
	LastName       string     `db:"last_name"`
	DocumentNumber string     `db:"document_number"`
	Position       string     `db:"position"`
	Roles          []string   `db:"roles"`
}

// FullName returns the collaborator's display name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// CreateInput carries the new-user form.
type CreateInput struct {
	CollaboratorID  int64  `validate:"required,gt=0"`
	Username        string `validate:"required,max=50"`
	Password        string `validate:"required,bcryptlen"`
	ConfirmPassword string `validate:"required"`
	IsActive        bool
}

// UpdateInput carries the edit form. An empty Password keeps the stored hash.
type UpdateInput struct {
	Username        string `validate:"required,max=50"`
	Password        string `validate:"omitempty,bcryptlen"`
	ConfirmPassword string
	IsActive        bool
}

// PasswordInput carries the change-password form.
type PasswordInput struct {
	Password        string `validate:"required,bcryptlen"`
	ConfirmPassword string `validate:"required"`
}
